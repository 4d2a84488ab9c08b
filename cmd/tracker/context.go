package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"nyurban_tracker/internal/config"
	"nyurban_tracker/internal/filter"
	"nyurban_tracker/internal/gate"
	"nyurban_tracker/internal/logging"
	"nyurban_tracker/internal/notify"
	"nyurban_tracker/internal/scraper"
	"nyurban_tracker/internal/storage"
	"nyurban_tracker/internal/tracker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
	log        *slog.Logger
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
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
		c.log = logging.New(cfg.LogLevel, os.Stderr)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	if c.log == nil {
		return logging.New("info", os.Stderr)
	}
	return c.log
}

func (c *commandContext) notifier() (notify.Notifier, error) {
	cfg := c.config
	n := notify.Multi{notify.NewEmail(notify.EmailSettingsFromConfig(cfg), c.logger())}
	if cfg.TelegramEnabled() {
		n = append(n, notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatIDs, cfg.BaseURL, c.logger()))
	}

	rules, err := filter.ParseRules(cfg.NotifyInclude, cfg.NotifyExclude)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return n, nil
	}
	return notify.Filtered{Next: n, Rules: rules}, nil
}

// buildChecker wires the scraper, store, gate and notifiers. The caller
// closes the returned store.
func (c *commandContext) buildChecker() (*tracker.Checker, storage.Store, error) {
	cfg := c.config
	log := c.logger()

	store, err := storage.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}

	n, err := c.notifier()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	s := scraper.New(http.DefaultClient, cfg.BaseURL, cfg.HTTPTimeout(), log)
	return tracker.NewChecker(s, store, gate.New(cfg.CheckInterval()), n, log), store, nil
}
