//go:build !linux

package dataplane

import (
	"context"
	"errors"
	"net/netip"

	"bladenet"
)

var errUnsupported = errors.New("overlay dataplane requires linux")

// Kernel is a stub on non-Linux platforms; every operation fails.
type Kernel struct{}

// NewKernel creates the stub dataplane.
func NewKernel() *Kernel {
	return &Kernel{}
}

func (k *Kernel) Interfaces(context.Context) (map[string]bladenet.InterfaceRecord, error) {
	return nil, errUnsupported
}

func (k *Kernel) DeleteLink(context.Context, string) error { return errUnsupported }

func (k *Kernel) CreateVXLAN(context.Context, string, uint32, string) error {
	return errUnsupported
}

func (k *Kernel) CreateBridge(context.Context, string) error { return errUnsupported }

func (k *Kernel) SetMaster(context.Context, string, string) error { return errUnsupported }

func (k *Kernel) AppendFloodEntry(context.Context, string, netip.Addr) error {
	return errUnsupported
}
