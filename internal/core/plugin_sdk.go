package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"otbot/internal/kit"
)

// ConfigValidator is an optional plugin capability: validate a raw config
// blob without applying it. Called before a new config is committed.
type ConfigValidator interface {
	ValidateConfig(ctx context.Context, raw json.RawMessage) error
}

// PluginBase carries the boilerplate every plugin needs: deps, a namespaced
// logger, and a guard against use before Init. Embed it and call InitBase /
// StartBase / StopBase from the corresponding lifecycle methods.
type PluginBase struct {
	name string

	Log      *slog.Logger
	Adapter  kit.Adapter
	Cfg      *ConfigManager
	Services *Services
	Owners   []int64
	Mods     []int64

	inited  bool
	started bool
}

func NewPluginBase(name string) PluginBase {
	return PluginBase{name: name}
}

func (b *PluginBase) Name() string { return b.name }

func (b *PluginBase) InitBase(deps PluginDeps) error {
	if b.name == "" {
		return fmt.Errorf("plugin base: empty name")
	}
	if deps.Logger == nil || deps.Adapter == nil || deps.Services == nil {
		return fmt.Errorf("plugin %s: incomplete deps", b.name)
	}
	b.Log = deps.Logger.With(slog.String("plugin", b.name))
	b.Adapter = deps.Adapter
	b.Cfg = deps.Config
	b.Services = deps.Services
	b.Owners = deps.OwnerUserIDs
	b.Mods = deps.ModeratorUserIDs
	b.inited = true
	return nil
}

func (b *PluginBase) StartBase() error {
	if !b.inited {
		return fmt.Errorf("plugin %s: start before init", b.name)
	}
	b.started = true
	return nil
}

func (b *PluginBase) StopBase() {
	b.started = false
}

func (b *PluginBase) Ready() bool { return b.inited && b.started }

// ns prefixes an identifier with the plugin name; used for task and
// callback namespacing ("offtopic:update").
func (b *PluginBase) NS(id string) string { return b.name + ":" + id }

// DecodePluginConfig strictly decodes a plugin's raw config blob into T.
// Unknown fields are an error so typos surface at reload time rather than
// silently falling back to defaults.
func DecodePluginConfig[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode plugin config: %w", err)
	}
	return out, nil
}

// TimeoutsConfig is the standard optional "timeouts" block plugins may carry
// in their config.
type TimeoutsConfig struct {
	Command string `json:"command,omitempty"`
	Task    string `json:"task,omitempty"`
}

func (t TimeoutsConfig) Validate() error {
	for _, f := range []struct{ name, v string }{
		{"command", t.Command},
		{"task", t.Task},
	} {
		if f.v == "" {
			continue
		}
		d, err := time.ParseDuration(f.v)
		if err != nil {
			return fmt.Errorf("timeouts.%s: %w", f.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeouts.%s: must be positive", f.name)
		}
	}
	return nil
}

// TaskTimeout returns the configured task timeout or def when unset.
func (t TimeoutsConfig) TaskTimeout(def time.Duration) time.Duration {
	if t.Task == "" {
		return def
	}
	d, err := time.ParseDuration(t.Task)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
