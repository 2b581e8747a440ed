package offtopic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"otbot/internal/core"
	"otbot/internal/kit"
	"otbot/internal/services/names"
)

type fakeAdapter struct {
	mu      sync.Mutex
	sent    []string
	edited  []string
	renames []string
	answers []string

	renameErr map[int64]error
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, text)
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeAdapter) RenameChat(ctx context.Context, chatID int64, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.renameErr[chatID]; err != nil {
		return err
	}
	f.renames = append(f.renames, fmt.Sprintf("%d:%s", chatID, title))
	return nil
}

func (f *fakeAdapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	return nil
}

func (f *fakeAdapter) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeNames struct {
	mu      sync.Mutex
	names   []string
	random  []string
	added   []string
	deleted []string

	listErr   error
	randomErr error
	addErr    error
	deleteErr error
}

func (f *fakeNames) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.names...), nil
}

func (f *fakeNames) Random(ctx context.Context, n int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.randomErr != nil {
		return nil, f.randomErr
	}
	if len(f.random) > 0 {
		return append([]string(nil), f.random...), nil
	}
	if n > len(f.names) {
		n = len(f.names)
	}
	return append([]string(nil), f.names[:n]...), nil
}

func (f *fakeNames) Add(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, name)
	return nil
}

func (f *fakeNames) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func newTestPlugin(t *testing.T, fa *fakeAdapter, fn *fakeNames) *Plugin {
	t.Helper()
	p := New()
	deps := core.PluginDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Adapter:  fa,
		Services: &core.Services{Names: fn},
	}
	if err := p.Init(context.Background(), deps); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestRequest(p *Plugin, fa *fakeAdapter, args ...string) *core.Request {
	return &core.Request{
		Update:   kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 100, FromID: 7}},
		Chat:     kit.ChatTarget{ChatID: 100},
		Args:     args,
		Adapter:  fa,
		Logger:   p.Log,
		Services: p.Services,
	}
}

func TestAddRejectsSimilarName(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{names: []string{"toxic-debate"}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdAdd(context.Background(), newTestRequest(p, fa, "toxic", "debates")); err != nil {
		t.Fatal(err)
	}
	if len(fn.added) != 0 {
		t.Fatalf("similar name was added: %v", fn.added)
	}
	msg := fa.lastSent()
	if !strings.Contains(msg, "too similar to `toxic-debate`") {
		t.Fatalf("unexpected reply: %q", msg)
	}
	if !strings.Contains(msg, "forceadd") {
		t.Fatalf("reply should point at forceadd: %q", msg)
	}
}

func TestAddAcceptsDistinctName(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{names: []string{"banana-stand"}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdAdd(context.Background(), newTestRequest(p, fa, "quantum", "tacos")); err != nil {
		t.Fatal(err)
	}
	if len(fn.added) != 1 || fn.added[0] != "quantum-tacos" {
		t.Fatalf("added = %v", fn.added)
	}
	if msg := fa.lastSent(); !strings.Contains(msg, "Added `quantum-tacos`") {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestForceAddSkipsSimilarityCheck(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{names: []string{"toxic-debate"}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdForceAdd(context.Background(), newTestRequest(p, fa, "toxic", "debates")); err != nil {
		t.Fatal(err)
	}
	if len(fn.added) != 1 || fn.added[0] != "toxic-debates" {
		t.Fatalf("added = %v", fn.added)
	}
}

func TestAddRejectsInvalidName(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdAdd(context.Background(), newTestRequest(p, fa, "foo_bar")); err != nil {
		t.Fatal(err)
	}
	if len(fn.added) != 0 {
		t.Fatalf("invalid name was added: %v", fn.added)
	}
	if msg := fa.lastSent(); !strings.Contains(msg, "invalid character") {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{names: []string{"quantum-tacos"}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdDelete(context.Background(), newTestRequest(p, fa, "quantum", "tacos")); err != nil {
		t.Fatal(err)
	}
	if len(fn.deleted) != 1 || fn.deleted[0] != "quantum-tacos" {
		t.Fatalf("deleted = %v", fn.deleted)
	}
	if msg := fa.lastSent(); !strings.Contains(msg, "Removed `quantum-tacos`") {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestDeleteUnknownName(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{deleteErr: &names.StatusError{Method: http.MethodDelete, Path: "x", Code: http.StatusNotFound}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdDelete(context.Background(), newTestRequest(p, fa, "ghost")); err != nil {
		t.Fatal(err)
	}
	if msg := fa.lastSent(); !strings.Contains(msg, "is not in the names list") {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestListEmptyPool(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	p := newTestPlugin(t, fa, &fakeNames{})

	if err := p.cmdList(context.Background(), newTestRequest(p, fa)); err != nil {
		t.Fatal(err)
	}
	if msg := fa.lastSent(); msg != "Hmmm, seems like there's nothing here yet." {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestListSortedWithCount(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{names: []string{"zebra-crossing", "apple-pie"}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdList(context.Background(), newTestRequest(p, fa)); err != nil {
		t.Fatal(err)
	}
	msg := fa.lastSent()
	if !strings.Contains(msg, "Known off-topic names (2 total)") {
		t.Fatalf("missing title: %q", msg)
	}
	if strings.Index(msg, "• apple-pie") > strings.Index(msg, "• zebra-crossing") {
		t.Fatalf("names not sorted: %q", msg)
	}
}

func TestSearchNothingFound(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{names: []string{"banana-stand"}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdSearch(context.Background(), newTestRequest(p, fa, "zzzzzz")); err != nil {
		t.Fatal(err)
	}
	if msg := fa.lastSent(); msg != "Nothing found." {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestSearchSubstring(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{names: []string{"banana-stand", "quantum-tacos"}}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdSearch(context.Background(), newTestRequest(p, fa, "banana")); err != nil {
		t.Fatal(err)
	}
	msg := fa.lastSent()
	if !strings.Contains(msg, "Query results") || !strings.Contains(msg, "• banana-stand") {
		t.Fatalf("unexpected reply: %q", msg)
	}
	if strings.Contains(msg, "quantum-tacos") {
		t.Fatalf("unrelated name in results: %q", msg)
	}
}

func TestListAPIDown(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	fn := &fakeNames{listErr: &names.StatusError{Method: http.MethodGet, Path: "x", Code: http.StatusBadGateway}}
	p := newTestPlugin(t, fa, fn)

	err := p.cmdList(context.Background(), newTestRequest(p, fa))
	if err == nil {
		t.Fatal("want error for request logging")
	}
	if msg := fa.lastSent(); !strings.Contains(msg, "unavailable") {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestPageFlip(t *testing.T) {
	t.Parallel()

	// enough names to spill past one 400-char page
	var pool []string
	for i := 0; i < 30; i++ {
		pool = append(pool, fmt.Sprintf("some-longer-name-%02d", i))
	}
	fa := &fakeAdapter{}
	fn := &fakeNames{names: pool}
	p := newTestPlugin(t, fa, fn)

	if err := p.cmdList(context.Background(), newTestRequest(p, fa)); err != nil {
		t.Fatal(err)
	}
	first := fa.lastSent()
	if !strings.Contains(first, "Page 1/") {
		t.Fatalf("expected multi-page listing: %q", first)
	}

	// one session stored by cmdList
	p.pager.mu.Lock()
	var sid string
	for k := range p.pager.sess {
		sid = k
	}
	p.pager.mu.Unlock()
	if sid == "" {
		t.Fatal("no pager session stored")
	}

	req := newTestRequest(p, fa)
	req.Update = kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "cb1", ChatID: 100, MessageID: 1}}
	if err := p.cbPage(context.Background(), req, sid+":1"); err != nil {
		t.Fatal(err)
	}
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if len(fa.edited) != 1 || !strings.Contains(fa.edited[0], "Page 2/") {
		t.Fatalf("edited = %v", fa.edited)
	}
}

func TestPageFlipExpiredSession(t *testing.T) {
	t.Parallel()

	fa := &fakeAdapter{}
	p := newTestPlugin(t, fa, &fakeNames{})

	req := newTestRequest(p, fa)
	req.Update = kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "cb1", ChatID: 100, MessageID: 1}}
	if err := p.cbPage(context.Background(), req, "deadbeef:1"); err != nil {
		t.Fatal(err)
	}
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if len(fa.answers) != 1 || !strings.Contains(fa.answers[0], "expired") {
		t.Fatalf("answers = %v", fa.answers)
	}
}
