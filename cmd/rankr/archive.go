package main

import (
	"github.com/FranksOps/rankr/internal/archive"
	"github.com/FranksOps/rankr/internal/snapshot"
	"github.com/spf13/cobra"
)

func newArchiveCmd(a *app) *cobra.Command {
	var dir, dest string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Bundle saved results pages into a zip file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := archive.Package(dir, dest)
			if err != nil {
				return err
			}
			a.logger.Debug("archive written", "dir", dir, "dest", dest, "files", n)
			newStatusPrinter(cmd.OutOrStdout()).Archived(dest, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", snapshot.DefaultDir, "directory of saved results pages")
	cmd.Flags().StringVar(&dest, "out", archive.DefaultName, "zip file to write")
	return cmd
}
