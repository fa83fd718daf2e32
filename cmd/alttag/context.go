package main

import (
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"alttag/internal/config"
	"alttag/internal/images"
	"alttag/internal/logging"
	"alttag/internal/processor"
	"alttag/internal/queue"
	"alttag/internal/services/captioner"
	"alttag/internal/storage"
)

// commandContext lazily wires the stores and processor shared by the
// subcommands. Everything is built at most once per invocation.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

func (c *commandContext) database() (*sql.DB, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.dbOnce.Do(func() {
		c.db, c.dbErr = storage.Open(cfg)
	})
	return c.db, c.dbErr
}

func (c *commandContext) queueStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return queue.NewStore(db, time.Duration(cfg.Processing.StaleLockMinutes)*time.Minute), nil
}

func (c *commandContext) imageStore() (*images.Store, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return images.NewStore(db), nil
}

func (c *commandContext) captionClient() (*captioner.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return captioner.NewClient(
		cfg.Provider.EndpointURL,
		cfg.Provider.AuthToken,
		captioner.WithTimeout(time.Duration(cfg.Provider.RequestTimeout)*time.Second),
		captioner.WithDirectUpload(cfg.Provider.DirectUpload),
	), nil
}

func (c *commandContext) newProcessor(logger *slog.Logger) (*processor.Processor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	queueStore, err := c.queueStore()
	if err != nil {
		return nil, err
	}
	imageStore, err := c.imageStore()
	if err != nil {
		return nil, err
	}
	client, err := c.captionClient()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return processor.New(cfg, queueStore, imageStore, client, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
