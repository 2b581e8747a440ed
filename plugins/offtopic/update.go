package offtopic

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"otbot/internal/core"
	"otbot/internal/kit"
	"otbot/internal/services/names"
	"otbot/internal/storage"
)

// runUpdate renames the rotation chats with fresh names from the pool.
// Returning an error hands transient failures to the scheduler's retry
// backoff; per-slot rename failures do not stop the remaining slots.
func (p *Plugin) runUpdate(ctx context.Context) error {
	cfg, cache := p.snapshot()
	if len(cfg.Channels) != slotCount {
		return fmt.Errorf("offtopic: not configured")
	}

	picked, fromCache, err := p.pickNames(ctx, cache)
	if err != nil {
		return err
	}

	var firstErr error
	renamed := 0
	for i, chatID := range cfg.Channels {
		title := slotPrefix[i] + picked[i]
		if err := p.Adapter.RenameChat(ctx, chatID, title); err != nil {
			p.Log.Error("rename chat failed",
				slog.Int64("chat_id", chatID),
				slog.String("title", title),
				slog.Any("err", err))
			if firstErr == nil {
				firstErr = fmt.Errorf("rename chat %d: %w", chatID, err)
			}
			continue
		}
		renamed++
	}

	if !fromCache {
		p.refreshCache(ctx, cache)
	}
	p.notifyOutcome(ctx, renamed, fromCache, firstErr)
	return firstErr
}

// pickNames asks the pool for random names, falling back to the local
// cache from the last good sync when the API is down.
func (p *Plugin) pickNames(ctx context.Context, cache *storage.Cache) ([]string, bool, error) {
	fresh, err := p.Services.Names.Random(ctx, slotCount)
	if err == nil {
		if len(fresh) < slotCount {
			return nil, false, fmt.Errorf("name pool returned %d names, want %d", len(fresh), slotCount)
		}
		return fresh[:slotCount], false, nil
	}

	if cache != nil {
		stored, cerr := cache.Names(ctx)
		if cerr == nil && len(stored) >= slotCount {
			p.Log.Warn("name pool fetch failed, using cached names", slog.Any("err", err))
			perm := rand.Perm(len(stored))
			out := make([]string, slotCount)
			for i := 0; i < slotCount; i++ {
				out[i] = stored[perm[i]]
			}
			return out, true, nil
		}
	}
	ferr := fmt.Errorf("fetch names: %w", err)
	if !names.Recoverable(err) {
		// a 4xx from the pool will not heal on retry
		ferr = core.PermanentTaskError(ferr)
	}
	return nil, false, ferr
}

// refreshCache mirrors the full pool into the local cache. Best effort.
func (p *Plugin) refreshCache(ctx context.Context, cache *storage.Cache) {
	if cache == nil {
		return
	}
	all, err := p.Services.Names.List(ctx)
	if err != nil {
		p.Log.Warn("name cache refresh skipped", slog.Any("err", err))
		return
	}
	if err := cache.ReplaceNames(ctx, all); err != nil {
		p.Log.Warn("name cache refresh failed", slog.Any("err", err))
		return
	}
	p.Log.Debug("name cache refreshed", slog.Int("names", len(all)))
}

func (p *Plugin) notifyOutcome(ctx context.Context, renamed int, fromCache bool, err error) {
	if p.Cfg == nil {
		return
	}
	target := ""
	if cfg := p.Cfg.Get(); cfg != nil {
		target = strings.TrimSpace(cfg.Telegram.GroupLog)
	}
	if target == "" {
		return
	}
	chatID, perr := strconv.ParseInt(target, 10, 64)
	if perr != nil {
		return
	}

	prio := 1
	text := fmt.Sprintf("off-topic titles updated (%d/%d)", renamed, slotCount)
	if fromCache {
		text += ", from local cache"
	}
	if err != nil {
		prio = 5
		text = fmt.Sprintf("off-topic title update incomplete (%d/%d): %v", renamed, slotCount, err)
	}
	_ = p.Services.Notifier.Notify(ctx, kit.Notification{
		Channel:  p.Name(),
		Priority: prio,
		Target:   kit.ChatTarget{ChatID: chatID},
		Text:     text,
	})
}
