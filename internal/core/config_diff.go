package core

import (
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"reflect"
	"sort"
	"strings"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging (never includes secrets like tokens),
// and (3) a list of plugin names that changed (enable/config).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []slog.Attr, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]slog.Attr, 0, 16)

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) ||
		!reflect.DeepEqual(oldCfg.Telegram.ModeratorUserIDs, newCfg.Telegram.ModeratorUserIDs) ||
		strings.TrimSpace(oldCfg.Telegram.GroupLog) != strings.TrimSpace(newCfg.Telegram.GroupLog) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			slog.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			slog.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			slog.Int("telegram.moderator_count", len(newCfg.Telegram.ModeratorUserIDs)),
			slog.Bool("telegram.group_log_set", strings.TrimSpace(newCfg.Telegram.GroupLog) != ""),
		)
	}

	// Logging
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			slog.String("logging.level", newCfg.Logging.Level),
			slog.Bool("logging.console", newCfg.Logging.Console),
			slog.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			slog.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	// Site API (never log token)
	if strings.TrimSpace(oldCfg.SiteAPI.BaseURL) != strings.TrimSpace(newCfg.SiteAPI.BaseURL) ||
		strings.TrimSpace(oldCfg.SiteAPI.Timeout) != strings.TrimSpace(newCfg.SiteAPI.Timeout) ||
		oldCfg.SiteAPI.RetryMax != newCfg.SiteAPI.RetryMax ||
		(strings.TrimSpace(oldCfg.SiteAPI.Token) != "") != (strings.TrimSpace(newCfg.SiteAPI.Token) != "") {
		changed = append(changed, "site_api")
		attrs = append(attrs,
			slog.String("site_api.base_url", strings.TrimSpace(newCfg.SiteAPI.BaseURL)),
			slog.Bool("site_api.token_set", strings.TrimSpace(newCfg.SiteAPI.Token) != ""),
			slog.Int("site_api.retry_max", newCfg.SiteAPI.RetryMax),
		)
	}

	// Scheduler
	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			slog.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			slog.Int("scheduler.workers", newCfg.Scheduler.Workers),
			slog.String("scheduler.timezone", newCfg.Scheduler.Timezone),
			slog.Int("scheduler.retry_max", newCfg.Scheduler.RetryMax),
		)
	}

	// Plugins (summarize only; details at debug)
	pluginChanged := diffPlugins(oldCfg.Plugins, newCfg.Plugins)
	if len(pluginChanged) > 0 {
		changed = append(changed, "plugins")
		attrs = append(attrs,
			slog.Int("plugins.changed_count", len(pluginChanged)),
			slog.Int("plugins.enabled_count", countEnabled(newCfg.Plugins)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, pluginChanged
}

func countEnabled(m map[string]PluginConfigRaw) int {
	n := 0
	for _, v := range m {
		if v.Enabled {
			n++
		}
	}
	return n
}

func diffPlugins(oldM, newM map[string]PluginConfigRaw) []string {
	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o := oldM[name]
		n := newM[name]
		if o.Enabled != n.Enabled {
			out = append(out, name)
			continue
		}
		if configFingerprint(o.Config) != configFingerprint(n.Config) {
			out = append(out, name)
			continue
		}
	}
	sort.Strings(out)
	return out
}

// configFingerprint hashes a raw plugin config block after canonicalizing
// the JSON, so key order and whitespace differences do not register as
// changes. Invalid JSON is hashed as-is.
func configFingerprint(raw json.RawMessage) uint64 {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fingerprint(raw)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fingerprint(raw)
	}
	return fingerprint(b)
}

func fingerprint(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	return out
}
