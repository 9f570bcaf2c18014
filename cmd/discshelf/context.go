package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/identification"
	"discshelf/internal/library"
	"discshelf/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger   *slog.Logger
	fetcher  *fetch.Fetcher
	resolver *identification.Resolver
	library  *library.Library
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) log() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

func (c *commandContext) httpFetcher() (*fetch.Fetcher, error) {
	if c.fetcher != nil {
		return c.fetcher, nil
	}
	logger, err := c.log()
	if err != nil {
		return nil, err
	}
	c.fetcher = fetch.NewFromConfig(c.config, logger)
	return c.fetcher, nil
}

func (c *commandContext) lookupResolver() (*identification.Resolver, error) {
	if c.resolver != nil {
		return c.resolver, nil
	}
	logger, err := c.log()
	if err != nil {
		return nil, err
	}
	resolver, err := identification.NewFromConfig(c.config, logger)
	if err != nil {
		return nil, err
	}
	c.resolver = resolver
	return resolver, nil
}

func (c *commandContext) collection(ctx context.Context) (*library.Library, error) {
	if c.library != nil {
		return c.library, nil
	}
	logger, err := c.log()
	if err != nil {
		return nil, err
	}
	fetcher, err := c.httpFetcher()
	if err != nil {
		return nil, err
	}
	lib, err := library.NewFromConfig(ctx, c.config, fetcher, logger)
	if err != nil {
		return nil, err
	}
	c.library = lib
	return lib, nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.library != nil {
		errs = append(errs, c.library.Close())
		c.library = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
