package main

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	"bladenet"
	"bladenet/cmd/bladenet/ui"
	"bladenet/infra/cmdrun"
	"bladenet/infra/dataplane"
	"bladenet/infra/libvirt"
	"bladenet/overlay"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var commandTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the blade's current interfaces and virtual networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := cmdrun.NewExec()
			snap, err := overlay.TakeSnapshot(
				cmd.Context(),
				dataplane.NewKernel(),
				libvirt.New(runner, libvirt.WithTimeout(commandTimeout)),
			)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(snap.Interfaces))
			for name := range snap.Interfaces {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rec := snap.Interfaces[name]
				rows = append(rows, []string{
					rec.Name,
					rec.Kind.String(),
					joinAddrs(rec.LocalAddrs),
					joinAddrs(rec.ForwardingDsts),
				})
			}
			fmt.Println(ui.Table([]string{"interface", "kind", "addresses", "fdb destinations"}, rows))

			networks := "-"
			if len(snap.Networks) > 0 {
				networks = strings.Join(snap.Networks, ", ")
			}
			fmt.Print(ui.KeyValues("",
				ui.KV("virtual networks", networks),
				ui.KV("vxlan devices", fmt.Sprintf("%d", countKind(snap, bladenet.LinkVXLAN))),
				ui.KV("bridge devices", fmt.Sprintf("%d", countKind(snap, bladenet.LinkBridge))),
			))
			return nil
		},
	}

	cmd.Flags().DurationVar(&commandTimeout, "command-timeout", 0, "Bound each external command (0 = unbounded)")

	return cmd
}

func joinAddrs(addrs []netip.Addr) string {
	if len(addrs) == 0 {
		return "-"
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func countKind(snap *overlay.Snapshot, kind bladenet.LinkKind) int {
	n := 0
	for _, rec := range snap.Interfaces {
		if rec.Kind == kind {
			n++
		}
	}
	return n
}
