package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram  TelegramConfig             `json:"telegram"`
	Logging   LoggingConfig              `json:"logging"`
	Scheduler SchedulerConfig            `json:"scheduler"`
	SiteAPI   SiteAPIConfig              `json:"site_api"`
	Plugins   map[string]PluginConfigRaw `json:"plugins"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// ModeratorUserIDs may run AccessModerator commands. Owners are always
	// included implicitly.
	ModeratorUserIDs []int64 `json:"moderator_user_ids"`
	GroupLog         string  `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}
type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	Workers int  `json:"workers"`
	// DefaultTimeout is a Go duration string (e.g. "10s", "1m").
	// Use "0s" to disable a global default timeout.
	DefaultTimeout string `json:"default_timeout"`
	HistorySize    int    `json:"history_size"`
	Timezone       string `json:"timezone,omitempty"`
	RetryMax       int    `json:"retry_max,omitempty"`
}

// SiteAPIConfig configures the shared client for the remote name store.
type SiteAPIConfig struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token,omitempty"`
	// Timeout is a Go duration string; per-request budget.
	Timeout string `json:"timeout,omitempty"`
	// RetryMax bounds HTTP-level retries inside a single request.
	RetryMax int `json:"retry_max,omitempty"`
}

// PollDuration returns the long-poll timeout, defaulting to 10s when the
// field is empty or zero.
func (c TelegramConfig) PollDuration() (time.Duration, error) {
	d, err := optionalDuration("telegram.poll_timeout", c.PollTimeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 10 * time.Second, nil
	}
	return d, nil
}

// TimeoutDuration returns the global per-task timeout; zero disables it.
func (c SchedulerConfig) TimeoutDuration() (time.Duration, error) {
	return optionalDuration("scheduler.default_timeout", c.DefaultTimeout)
}

// TimeoutDuration returns the per-request budget for the name store client;
// zero means the client default.
func (c SiteAPIConfig) TimeoutDuration() (time.Duration, error) {
	return optionalDuration("site_api.timeout", c.Timeout)
}

// optionalDuration parses a duration config field. Empty means unset (0).
func optionalDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

type PluginConfigRaw struct {
	Enabled bool            `json:"enabled"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// UnmarshalJSON disallows unknown fields to ensure removed legacy keys
// are caught early during config reload.
func (p *PluginConfigRaw) UnmarshalJSON(b []byte) error {
	type tmp struct {
		Enabled bool            `json:"enabled"`
		Config  json.RawMessage `json:"config,omitempty"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var t tmp
	if err := dec.Decode(&t); err != nil {
		return err
	}
	*p = PluginConfigRaw{Enabled: t.Enabled, Config: t.Config}
	return nil
}
