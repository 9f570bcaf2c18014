package main

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"discshelf/internal/api"
	"discshelf/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the browser scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			logger, err := ctx.log()
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another discshelf server is already running")
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release server lock", logging.Error(err))
				}
			}()

			resolver, err := ctx.lookupResolver()
			if err != nil {
				return err
			}
			lib, err := ctx.collection(cmd.Context())
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.API.Bind
			}
			server, err := api.NewServer(api.Options{
				Bind:           bind,
				AllowedOrigins: cfg.API.AllowedOrigins,
				Resolver:       resolver,
				Library:        lib,
				Logger:         logger,
			})
			if err != nil {
				return err
			}
			if err := server.Start(cmd.Context()); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), statusOK, "Listening on http://%s (%s backend)", server.Addr(), lib.BackendName())

			<-cmd.Context().Done()
			server.Stop()
			logger.Info("api server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to api.bind)")
	return cmd
}
