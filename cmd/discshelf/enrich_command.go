package main

import (
	"errors"

	"github.com/spf13/cobra"

	"discshelf/internal/enrich"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fill in runtime, languages, region, and audio for pending records",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.collection(cmd.Context())
			if err != nil {
				return err
			}
			if lib.ReadOnly() {
				return errors.New("enrichment needs a writable store; set a store token")
			}
			logger, err := ctx.log()
			if err != nil {
				return err
			}
			fetcher, err := ctx.httpFetcher()
			if err != nil {
				return err
			}
			enricher, err := enrich.NewFromConfig(ctx.config, lib.Store(), fetcher, logger, enrich.WithNotifier(lib.Notifier()))
			if err != nil {
				return err
			}
			summary, err := enricher.Run(cmd.Context())
			if err != nil {
				return userError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			if summary.Pending == 0 {
				printStatus(out, statusInfo, "No records awaiting enrichment")
				return nil
			}
			kind := statusOK
			if summary.Failed > 0 {
				kind = statusWarn
			}
			printStatus(out, kind, "Enriched %d of %d records (%d failed)", summary.Enriched, summary.Pending, summary.Failed)
			return nil
		},
	}
}
