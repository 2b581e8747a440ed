package offtopic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"otbot/internal/core"
)

type fakeSched struct {
	mu    sync.Mutex
	daily map[string]string // task name -> HH:MM
	sched map[string]string // task name -> schedule spec
}

func (f *fakeSched) Enabled() bool           { return true }
func (f *fakeSched) Snapshot() core.Snapshot { return core.Snapshot{} }

func (f *fakeSched) AddScheduleOpt(name, schedule string, timeout time.Duration, opt core.TaskOptions, job func(ctx context.Context) error) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sched == nil {
		f.sched = map[string]string{}
	}
	delete(f.daily, name)
	f.sched[name] = schedule
	return name, nil
}

func (f *fakeSched) AddDailyOpt(name, atHHMM string, timeout time.Duration, opt core.TaskOptions, job func(ctx context.Context) error) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.daily == nil {
		f.daily = map[string]string{}
	}
	delete(f.sched, name)
	f.daily[name] = atHHMM
	return name, nil
}

func (f *fakeSched) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, okD := f.daily[name]
	_, okS := f.sched[name]
	delete(f.daily, name)
	delete(f.sched, name)
	return okD || okS
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	p := New()
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "ok", raw: `{"channels":[1,2,3]}`},
		{name: "ok with time", raw: `{"channels":[1,2,3],"update_at":"04:30"}`},
		{name: "ok with cron", raw: `{"channels":[1,2,3],"update_at":"0 0 * * 1"}`},
		{name: "ok with interval", raw: `{"channels":[1,2,3],"update_at":"12h"}`},
		{name: "bad spec", raw: `{"channels":[1,2,3],"update_at":"whenever"}`, wantErr: true},
		{name: "too few channels", raw: `{"channels":[1,2]}`, wantErr: true},
		{name: "duplicate channel", raw: `{"channels":[1,1,3]}`, wantErr: true},
		{name: "zero channel", raw: `{"channels":[1,0,3]}`, wantErr: true},
		{name: "bad time", raw: `{"channels":[1,2,3],"update_at":"25:00"}`, wantErr: true},
		{name: "unknown field", raw: `{"channels":[1,2,3],"bogus":true}`, wantErr: true},
		{name: "bad timeout", raw: `{"channels":[1,2,3],"timeouts":{"task":"soon"}}`, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := p.ValidateConfig(context.Background(), json.RawMessage(tc.raw))
			if tc.wantErr && err == nil {
				t.Fatalf("want error for %s", tc.raw)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOnConfigChangeSchedulesDailyUpdate(t *testing.T) {
	t.Parallel()

	fs := &fakeSched{}
	p := New()
	deps := core.PluginDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Adapter:  &fakeAdapter{},
		Services: &core.Services{Names: &fakeNames{}, Scheduler: fs},
	}
	if err := p.Init(context.Background(), deps); err != nil {
		t.Fatal(err)
	}

	raw := json.RawMessage(`{"channels":[11,22,33],"update_at":"06:15"}`)
	if err := p.OnConfigChange(context.Background(), raw); err != nil {
		t.Fatal(err)
	}
	fs.mu.Lock()
	at := fs.daily["offtopic:update"]
	fs.mu.Unlock()
	if at != "06:15" {
		t.Fatalf("daily task at %q, want 06:15", at)
	}

	// reschedule on changed time
	raw = json.RawMessage(`{"channels":[11,22,33],"update_at":"07:45"}`)
	if err := p.OnConfigChange(context.Background(), raw); err != nil {
		t.Fatal(err)
	}
	fs.mu.Lock()
	at = fs.daily["offtopic:update"]
	fs.mu.Unlock()
	if at != "07:45" {
		t.Fatalf("daily task at %q, want 07:45", at)
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	fs.mu.Lock()
	_, still := fs.daily["offtopic:update"]
	fs.mu.Unlock()
	if still {
		t.Fatal("daily task not removed on stop")
	}
}

func TestOnConfigChangeAcceptsScheduleSpec(t *testing.T) {
	t.Parallel()

	fs := &fakeSched{}
	p := New()
	deps := core.PluginDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Adapter:  &fakeAdapter{},
		Services: &core.Services{Names: &fakeNames{}, Scheduler: fs},
	}
	if err := p.Init(context.Background(), deps); err != nil {
		t.Fatal(err)
	}

	raw := json.RawMessage(`{"channels":[11,22,33],"update_at":"0 4 * * 1"}`)
	if err := p.OnConfigChange(context.Background(), raw); err != nil {
		t.Fatal(err)
	}
	fs.mu.Lock()
	spec := fs.sched["offtopic:update"]
	_, daily := fs.daily["offtopic:update"]
	fs.mu.Unlock()
	if spec != "0 4 * * 1" {
		t.Fatalf("schedule spec %q, want cron expression", spec)
	}
	if daily {
		t.Fatal("cron spec must not register as daily task")
	}

	// switching back to a wall-clock time moves it to the daily slot
	raw = json.RawMessage(`{"channels":[11,22,33],"update_at":"03:00"}`)
	if err := p.OnConfigChange(context.Background(), raw); err != nil {
		t.Fatal(err)
	}
	fs.mu.Lock()
	at := fs.daily["offtopic:update"]
	_, cron := fs.sched["offtopic:update"]
	fs.mu.Unlock()
	if at != "03:00" || cron {
		t.Fatalf("daily %q (cron leftover %v), want 03:00 daily only", at, cron)
	}
}
