package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"discshelf/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the discshelf log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(ctx.config.Paths.LogDir, "discshelf.log")
			return logs.Tail(cmd.Context(), path, cmd.OutOrStdout(), logs.TailOptions{Lines: lines, Follow: follow})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	return cmd
}
