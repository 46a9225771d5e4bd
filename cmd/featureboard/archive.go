package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"featureboard/internal/core"
)

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default feature requests into an empty store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			n, err := core.SeedDefaults(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d feature requests\n", n)
			return nil
		},
	}
}

func newArchiveCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export, list and restore board archives",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "export",
			Short: "Write the current board to the blob store",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer func() { _ = a.Close() }()
				archiver, err := a.archiver(cmd.Context())
				if err != nil {
					return err
				}
				info, err := archiver.Export(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), info.Key)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored archives",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer func() { _ = a.Close() }()
				archiver, err := a.archiver(cmd.Context())
				if err != nil {
					return err
				}
				infos, err := archiver.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
				for _, info := range infos {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.UTC().Format("2006-01-02T15:04:05Z"))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "restore KEY",
			Short: "Load an archive into an empty store",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer func() { _ = a.Close() }()
				archiver, err := a.archiver(cmd.Context())
				if err != nil {
					return err
				}
				n, err := archiver.Restore(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored %d feature requests from %s\n", n, args[0])
				return nil
			},
		},
	)
	return cmd
}
