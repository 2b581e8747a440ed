// Package offtopic rotates the off-topic chat titles once a day from a
// shared remote name pool and offers moderation commands over that pool.
package offtopic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"otbot/internal/core"
	"otbot/internal/storage"
)

const slotCount = 3

// slot prefixes keep the rotation chats visually ordered in the chat list
var slotPrefix = [slotCount]string{"ot0-", "ot1-", "ot2-"}

type Config struct {
	// Channels are the rotation chats, slot order. Exactly three.
	Channels []int64 `json:"channels"`
	// UpdateAt is the daily rename time as HH:MM in the scheduler
	// timezone. It also accepts a full schedule spec (cron expression or
	// interval like "12h") for non-daily rotations.
	UpdateAt string `json:"update_at,omitempty"`
	// CachePath enables a local fallback pool for update runs when the
	// site API is down. Empty disables the cache.
	CachePath string `json:"cache_path,omitempty"`

	Timeouts core.TimeoutsConfig `json:"timeouts,omitempty"`
}

func (c *Config) withDefaults() {
	if strings.TrimSpace(c.UpdateAt) == "" {
		c.UpdateAt = "00:00"
	}
}

func (c Config) validate() error {
	if len(c.Channels) != slotCount {
		return fmt.Errorf("channels: need exactly %d chat ids, got %d", slotCount, len(c.Channels))
	}
	seen := map[int64]bool{}
	for _, id := range c.Channels {
		if id == 0 {
			return fmt.Errorf("channels: zero chat id")
		}
		if seen[id] {
			return fmt.Errorf("channels: duplicate chat id %d", id)
		}
		seen[id] = true
	}
	if at, clock := c.updateSpec(); clock {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("update_at: %w", err)
		}
	} else if err := core.ValidateSchedule(at); err != nil {
		return fmt.Errorf("update_at: %w", err)
	}
	return c.Timeouts.Validate()
}

// reClock matches wall-clock times. Anything else in update_at is treated
// as a schedule spec, so a typo like "25:00" still fails validation
// instead of silently becoming a 25-hour interval.
var reClock = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// updateSpec returns the trimmed update_at value and whether it is a
// daily wall-clock time rather than a schedule spec.
func (c Config) updateSpec() (string, bool) {
	s := strings.TrimSpace(c.UpdateAt)
	return s, reClock.MatchString(s)
}

type Plugin struct {
	core.PluginBase

	mu    sync.RWMutex
	cfg   Config
	cache *storage.Cache

	pager pager
}

func New() *Plugin {
	return &Plugin{PluginBase: core.NewPluginBase("offtopic")}
}

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	return p.InitBase(deps)
}

func (p *Plugin) Start(ctx context.Context) error {
	return p.StartBase()
}

func (p *Plugin) Stop(ctx context.Context) error {
	p.Services.Scheduler.Remove(p.NS("update"))

	p.mu.Lock()
	c := p.cache
	p.cache = nil
	p.mu.Unlock()
	if c != nil {
		if err := c.Close(); err != nil {
			p.Log.Warn("close name cache", slog.Any("err", err))
		}
	}
	p.StopBase()
	return nil
}

func (p *Plugin) ValidateConfig(ctx context.Context, raw json.RawMessage) error {
	cfg, err := core.DecodePluginConfig[Config](raw)
	if err != nil {
		return err
	}
	cfg.withDefaults()
	return cfg.validate()
}

func (p *Plugin) OnConfigChange(ctx context.Context, raw json.RawMessage) error {
	cfg, err := core.DecodePluginConfig[Config](raw)
	if err != nil {
		return err
	}
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	p.mu.Lock()
	prevPath := p.cfg.CachePath
	p.cfg = cfg
	hasCache := p.cache != nil
	p.mu.Unlock()

	if cfg.CachePath != prevPath || (cfg.CachePath != "" && !hasCache) {
		if err := p.reopenCache(cfg.CachePath); err != nil {
			// degraded but workable: updates just lose the offline fallback
			p.Log.Warn("name cache unavailable", slog.String("path", cfg.CachePath), slog.Any("err", err))
		}
	}

	timeout := cfg.Timeouts.TaskTimeout(2 * time.Minute)
	opt := core.TaskOptions{
		RetryMax:      6,
		RetryBase:     30 * time.Second,
		RetryMaxDelay: 20 * time.Minute,
	}
	at, clock := cfg.updateSpec()
	if clock {
		_, err = p.Services.Scheduler.AddDailyOpt(p.NS("update"), at, timeout, opt, p.runUpdate)
	} else {
		_, err = p.Services.Scheduler.AddScheduleOpt(p.NS("update"), at, timeout, opt, p.runUpdate)
	}
	if err != nil {
		return fmt.Errorf("schedule title update: %w", err)
	}
	p.Log.Info("title update scheduled", slog.String("at", at))
	return nil
}

func (p *Plugin) reopenCache(path string) error {
	p.mu.Lock()
	old := p.cache
	p.cache = nil
	p.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	if strings.TrimSpace(path) == "" {
		return nil
	}
	c, err := storage.Open(path, p.Log)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.cache = c
	p.mu.Unlock()
	return nil
}

func (p *Plugin) snapshot() (Config, *storage.Cache) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.cache
}
