// Package status exposes an owner-only overview of the running bot:
// version, uptime, scheduler state, site API health and recent operator
// notices.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"

	"otbot/internal/core"
	"otbot/internal/kit"
	"otbot/internal/services/notify"
)

type Plugin struct {
	core.PluginBase
	started time.Time
}

func New() *Plugin {
	return &Plugin{PluginBase: core.NewPluginBase("status")}
}

func (p *Plugin) Init(ctx context.Context, deps core.PluginDeps) error {
	return p.InitBase(deps)
}

func (p *Plugin) Start(ctx context.Context) error {
	p.started = time.Now()
	return p.StartBase()
}

func (p *Plugin) Stop(ctx context.Context) error {
	p.StopBase()
	return nil
}

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Route:       "status",
			Aliases:     []string{"st"},
			Description: "show bot status",
			Usage:       "/status",
			Access:      core.AccessOwnerOnly,
			Handle:      p.cmdStatus,
		},
	}
}

func (p *Plugin) cmdStatus(ctx context.Context, req *core.Request) error {
	var b strings.Builder

	fmt.Fprintf(&b, "version: %s\n", versioninfo.Short())
	fmt.Fprintf(&b, "uptime: %s\n", time.Since(p.started).Round(time.Second))

	if s := req.Services.Scheduler; s != nil {
		snap := s.Snapshot()
		if !snap.Enabled {
			b.WriteString("scheduler: disabled\n")
		} else {
			fmt.Fprintf(&b, "scheduler: %d schedules, queue %d/%d, dropped %d\n",
				len(snap.Schedules), snap.QueueLen, snap.QueueCap, snap.Dropped)
			for _, sc := range snap.Schedules {
				fmt.Fprintf(&b, "  %s next %s\n", sc.Name, sc.Next.Format("2006-01-02 15:04"))
			}
		}
	}

	b.WriteString("site api: ")
	b.WriteString(p.siteAPIHealth(ctx, req))
	b.WriteString("\n")

	if h, ok := req.Services.Notifier.(interface{ Snapshot() []notify.HistoryItem }); ok {
		b.WriteString(noticesLine(h.Snapshot()))
	}

	_, err := req.Adapter.SendText(ctx, req.Chat, strings.TrimRight(b.String(), "\n"), &kit.SendOptions{DisablePreview: true})
	return err
}

func noticesLine(items []notify.HistoryItem) string {
	if len(items) == 0 {
		return "notices: none\n"
	}
	last := items[len(items)-1]
	return fmt.Sprintf("notices: %d, last %s ago: %s\n",
		len(items), time.Since(last.At).Round(time.Second), last.Text)
}

func (p *Plugin) siteAPIHealth(ctx context.Context, req *core.Request) string {
	pinger, ok := req.Services.Names.(interface{ Ping(ctx context.Context) error })
	if !ok || req.Services.Names == nil {
		return "not configured"
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := pinger.Ping(cctx); err != nil {
		return fmt.Sprintf("down (%v)", err)
	}
	return fmt.Sprintf("ok (%s)", time.Since(start).Round(time.Millisecond))
}
