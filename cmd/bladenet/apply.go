package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"bladenet/blade"
	"bladenet/cmd/bladenet/ui"
	"bladenet/config"
	"bladenet/infra/cmdrun"
	"bladenet/infra/dataplane"
	"bladenet/infra/journal"
	"bladenet/infra/libvirt"

	"github.com/spf13/cobra"
)

const defaultDataDir = "/var/lib/bladenet"

func applyCmd() *cobra.Command {
	var (
		networksOnly   bool
		skipClockCheck bool
		commandTimeout time.Duration
		dataDir        string
	)

	cmd := &cobra.Command{
		Use:   "apply <config.yaml>",
		Short: "Apply a blade configuration: packages, services and overlay networks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			runner := cmdrun.NewExec()

			dep := &blade.Deployment{
				Config:       cfg,
				Runner:       runner,
				Dataplane:    dataplane.NewKernel(),
				Registry:     libvirt.New(runner, libvirt.WithTimeout(commandTimeout)),
				NetworksOnly: networksOnly,
			}
			dep.WithInstallerOptions(blade.WithCommandTimeout(commandTimeout))
			if !skipClockCheck {
				dep.Clock = blade.NTPClock{}
			}

			if j, err := journal.Open(filepath.Join(dataDir, "journal.db")); err != nil {
				slog.Warn("Journal disabled.", "err", err)
			} else {
				dep.Journal = j
				defer func() {
					_ = j.Close()
				}()
			}

			if err := dep.Run(cmd.Context()); err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("Blade %s configured.", ui.Bold(cfg.BladeClass)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&networksOnly, "networks-only", false, "Skip package setup, only reconcile overlay networks")
	cmd.Flags().BoolVar(&skipClockCheck, "skip-clock-check", false, "Skip the NTP clock preflight")
	cmd.Flags().DurationVar(&commandTimeout, "command-timeout", 0, "Bound each external command (0 = unbounded)")
	cmd.Flags().StringVar(&dataDir, "data-dir", defaultDataDir, "Directory for the reconciliation journal")

	return cmd
}
