package status

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"otbot/internal/core"
	"otbot/internal/kit"
	"otbot/internal/services/notify"
)

type fakeAdapter struct {
	sent []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.sent = append(f.sent, text)
	return kit.MessageRef{MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	return nil
}
func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error { return nil }
func (f *fakeAdapter) RenameChat(ctx context.Context, chatID int64, title string) error  { return nil }
func (f *fakeAdapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	return nil
}

type fakeNames struct {
	pingErr error
}

func (f *fakeNames) List(ctx context.Context) ([]string, error)          { return nil, nil }
func (f *fakeNames) Random(ctx context.Context, n int) ([]string, error) { return nil, nil }
func (f *fakeNames) Add(ctx context.Context, name string) error          { return nil }
func (f *fakeNames) Delete(ctx context.Context, name string) error       { return nil }
func (f *fakeNames) Ping(ctx context.Context) error                      { return f.pingErr }

type fakeSched struct {
	snap core.Snapshot
}

func (f *fakeSched) Enabled() bool           { return f.snap.Enabled }
func (f *fakeSched) Snapshot() core.Snapshot { return f.snap }

func (f *fakeSched) AddScheduleOpt(name, schedule string, timeout time.Duration, opt core.TaskOptions, job func(ctx context.Context) error) (string, error) {
	return name, nil
}

func (f *fakeSched) AddDailyOpt(name, atHHMM string, timeout time.Duration, opt core.TaskOptions, job func(ctx context.Context) error) (string, error) {
	return name, nil
}

func (f *fakeSched) Remove(name string) bool { return false }

func newTestPlugin(t *testing.T, fa *fakeAdapter, names core.NamesPort, sched core.SchedulerPort) *Plugin {
	t.Helper()
	p := New()
	deps := core.PluginDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Adapter:  fa,
		Services: &core.Services{Names: names, Scheduler: sched},
	}
	if err := p.Init(context.Background(), deps); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestStatusReportsHealth(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fs := &fakeSched{snap: core.Snapshot{
		Enabled:  true,
		QueueCap: 256,
		Schedules: []core.ScheduleInfo{
			{Name: "offtopic:update", Next: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		},
	}}
	p := newTestPlugin(t, fa, &fakeNames{}, fs)

	req := &core.Request{
		Chat:     kit.ChatTarget{ChatID: 1},
		Adapter:  fa,
		Logger:   p.Log,
		Services: p.Services,
	}
	if err := p.cmdStatus(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if len(fa.sent) != 1 {
		t.Fatalf("sent = %v", fa.sent)
	}
	out := fa.sent[0]
	for _, want := range []string{"version:", "uptime:", "1 schedules", "offtopic:update", "site api: ok"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusSiteAPIDown(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	p := newTestPlugin(t, fa, &fakeNames{pingErr: errors.New("boom")}, &fakeSched{})

	req := &core.Request{
		Chat:     kit.ChatTarget{ChatID: 1},
		Adapter:  fa,
		Logger:   p.Log,
		Services: p.Services,
	}
	if err := p.cmdStatus(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	out := fa.sent[0]
	if !strings.Contains(out, "site api: down") {
		t.Fatalf("missing down marker:\n%s", out)
	}
	if !strings.Contains(out, "scheduler: disabled") {
		t.Fatalf("missing scheduler line:\n%s", out)
	}
}

func TestStatusShowsRecentNotices(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	notif := notify.New(fa, log)
	if err := notif.Notify(context.Background(), kit.Notification{
		Priority: 5,
		Target:   kit.ChatTarget{ChatID: 99},
		Text:     "off-topic title update incomplete (2/3)",
	}); err != nil {
		t.Fatal(err)
	}

	p := New()
	deps := core.PluginDeps{
		Logger:  log,
		Adapter: fa,
		Services: &core.Services{
			Names:     &fakeNames{},
			Scheduler: &fakeSched{},
			Notifier:  notif,
		},
	}
	if err := p.Init(context.Background(), deps); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	req := &core.Request{
		Chat:     kit.ChatTarget{ChatID: 1},
		Adapter:  fa,
		Logger:   p.Log,
		Services: p.Services,
	}
	if err := p.cmdStatus(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	out := fa.sent[len(fa.sent)-1]
	if !strings.Contains(out, "notices: 1") {
		t.Fatalf("missing notices count:\n%s", out)
	}
	if !strings.Contains(out, "off-topic title update incomplete") {
		t.Fatalf("missing last notice text:\n%s", out)
	}
}
