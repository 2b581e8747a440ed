package core

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"otbot/internal/kit"
)

type recordAdapter struct {
	mu      sync.Mutex
	sent    []string
	answers []string
	sentCh  chan string
}

func newRecordAdapter() *recordAdapter {
	return &recordAdapter{sentCh: make(chan string, 16)}
}

func (f *recordAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *recordAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *recordAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	select {
	case f.sentCh <- text:
	default:
	}
	return kit.MessageRef{}, nil
}

func (f *recordAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	return nil
}

func (f *recordAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	f.answers = append(f.answers, text)
	f.mu.Unlock()
	select {
	case f.sentCh <- "cb:" + text:
	default:
	}
	return nil
}

func (f *recordAdapter) RenameChat(ctx context.Context, chatID int64, title string) error { return nil }
func (f *recordAdapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	return nil
}

func (f *recordAdapter) waitSent(t *testing.T) string {
	t.Helper()
	select {
	case s := <-f.sentCh:
		return s
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a send")
		return ""
	}
}

func testManager(t *testing.T, fa *recordAdapter) (*CommandManager, chan kit.Update, context.CancelFunc) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewCommandManager(log, fa, NewConfigManager(""), &Services{}, []int64{900}, []int64{901})

	updates := make(chan kit.Update, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.DispatchLoop(ctx, updates)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, updates, cancel
}

func msgUpdate(fromID int64, text string) kit.Update {
	return kit.Update{
		Kind:    kit.UpdateMessage,
		Message: &kit.Message{ID: 1, ChatID: 10, FromID: fromID, Text: text},
	}
}

func TestDispatchSubcommandWithAliases(t *testing.T) {
	t.Parallel()

	fa := newRecordAdapter()
	m, updates, _ := testManager(t, fa)

	var gotArgs []string
	m.SetRegistry([]Command{
		{
			Route:   "pool",
			Aliases: []string{"pl"},
			Handle: func(ctx context.Context, req *Request) error {
				_, _ = req.Adapter.SendText(ctx, req.Chat, "pool root", nil)
				return nil
			},
		},
		{
			Route:      "pool add",
			SubAliases: []string{"a"},
			Handle: func(ctx context.Context, req *Request) error {
				gotArgs = append([]string(nil), req.Args...)
				_, _ = req.Adapter.SendText(ctx, req.Chat, "added "+strings.Join(req.Args, " "), nil)
				return nil
			},
		},
	}, nil)

	// canonical route
	updates <- msgUpdate(1, "/pool add one two")
	if got := fa.waitSent(t); got != "added one two" {
		t.Fatalf("got %q", got)
	}
	if len(gotArgs) != 2 {
		t.Fatalf("args = %v", gotArgs)
	}

	// root alias continues into the subcommand tree
	updates <- msgUpdate(1, "/pl add three")
	if got := fa.waitSent(t); got != "added three" {
		t.Fatalf("got %q", got)
	}

	// subcommand alias
	updates <- msgUpdate(1, "/pool a four")
	if got := fa.waitSent(t); got != "added four" {
		t.Fatalf("got %q", got)
	}

	// bare container route runs its own handler
	updates <- msgUpdate(1, "/pool")
	if got := fa.waitSent(t); got != "pool root" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	t.Parallel()

	fa := newRecordAdapter()
	m, updates, _ := testManager(t, fa)
	m.SetRegistry(nil, nil)

	updates <- msgUpdate(1, "/bogus")
	if got := fa.waitSent(t); !strings.Contains(got, "unknown command") {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchAccessControl(t *testing.T) {
	t.Parallel()

	fa := newRecordAdapter()
	m, updates, _ := testManager(t, fa)
	m.SetRegistry([]Command{
		{
			Route:  "secret",
			Access: AccessModerator,
			Handle: func(ctx context.Context, req *Request) error {
				_, _ = req.Adapter.SendText(ctx, req.Chat, "ok", nil)
				return nil
			},
		},
	}, nil)

	updates <- msgUpdate(1, "/secret")
	if got := fa.waitSent(t); got != "unauthorized" {
		t.Fatalf("got %q", got)
	}

	// moderator passes
	updates <- msgUpdate(901, "/secret")
	if got := fa.waitSent(t); got != "ok" {
		t.Fatalf("got %q", got)
	}

	// owner passes moderator checks too
	updates <- msgUpdate(900, "/secret")
	if got := fa.waitSent(t); got != "ok" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchCallbackRouting(t *testing.T) {
	t.Parallel()

	fa := newRecordAdapter()
	m, updates, _ := testManager(t, fa)
	m.SetRegistry(nil, []CallbackRoute{
		{
			Plugin: "pool",
			Action: "page",
			Handle: func(ctx context.Context, req *Request, payload string) error {
				_, _ = req.Adapter.SendText(ctx, req.Chat, "payload="+payload, nil)
				return nil
			},
		},
	})

	updates <- kit.Update{
		Kind:     kit.UpdateCallback,
		Callback: &kit.Callback{ID: "cb1", ChatID: 10, FromID: 1, Data: "pool:page:abc:2"},
	}
	// payload keeps its inner colon
	if got := fa.waitSent(t); got != "payload=abc:2" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchLiteralArgsKeepsDashTokens(t *testing.T) {
	t.Parallel()

	fa := newRecordAdapter()
	m, updates, _ := testManager(t, fa)

	var gotArgs []string
	var mu sync.Mutex
	m.SetRegistry([]Command{
		{
			Route:       "pool add",
			LiteralArgs: true,
			Handle: func(ctx context.Context, req *Request) error {
				mu.Lock()
				gotArgs = append([]string(nil), req.Args...)
				mu.Unlock()
				_, _ = req.Adapter.SendText(ctx, req.Chat, "added "+strings.Join(req.Args, " "), nil)
				return nil
			},
		},
	}, nil)

	// a name starting with "-" must reach the handler, not be eaten as a flag
	updates <- msgUpdate(1, "/pool add -night-owls")
	if got := fa.waitSent(t); got != "added -night-owls" {
		t.Fatalf("got %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(gotArgs) != 1 || gotArgs[0] != "-night-owls" {
		t.Fatalf("args = %v, want [-night-owls]", gotArgs)
	}
}
