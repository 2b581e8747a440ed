package offtopic

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"otbot/internal/core"
	"otbot/internal/kit"
	"otbot/pkg/tgui"
)

// pageCharBudget caps the joined lines of a single page.
const pageCharBudget = 400

const (
	kindList   = "list"
	kindSearch = "search"

	sessionTTL = 30 * time.Minute
	sessionCap = 128
)

// pageQuery describes how to recompute a paged listing. Page flips re-run
// the query so the reader always sees current pool contents.
type pageQuery struct {
	kind    string
	query   string // normalized search query, kindSearch only
	created time.Time
}

type pager struct {
	mu   sync.Mutex
	sess map[string]pageQuery
}

func (pg *pager) put(q pageQuery) string {
	var raw [4]byte
	_, _ = rand.Read(raw[:])
	sid := hex.EncodeToString(raw[:])

	q.created = time.Now()
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.sess == nil {
		pg.sess = map[string]pageQuery{}
	}
	for k, v := range pg.sess {
		if time.Since(v.created) > sessionTTL {
			delete(pg.sess, k)
		}
	}
	if len(pg.sess) >= sessionCap {
		// drop the oldest session
		oldest, at := "", time.Now()
		for k, v := range pg.sess {
			if v.created.Before(at) {
				oldest, at = k, v.created
			}
		}
		delete(pg.sess, oldest)
	}
	pg.sess[sid] = q
	return sid
}

func (pg *pager) get(sid string) (pageQuery, bool) {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	q, ok := pg.sess[sid]
	if !ok || time.Since(q.created) > sessionTTL {
		delete(pg.sess, sid)
		return pageQuery{}, false
	}
	return q, true
}

// paginate packs bulleted lines into pages under the char budget. The
// budget counts runes, not bytes: fancy-font pool names are 4 bytes per
// rune and would otherwise quarter the page size. A line longer than the
// budget gets a page of its own.
func paginate(items []string, budget int) [][]string {
	var (
		pages [][]string
		cur   []string
		used  int
	)
	for _, it := range items {
		line := "• " + it
		n := utf8.RuneCountInString(line)
		if len(cur) > 0 {
			n++ // joining newline
		}
		if len(cur) > 0 && used+n > budget {
			pages = append(pages, cur)
			cur, used = nil, 0
			n = utf8.RuneCountInString(line)
		}
		cur = append(cur, line)
		used += n
	}
	if len(cur) > 0 {
		pages = append(pages, cur)
	}
	return pages
}

func renderPage(title string, pages [][]string, idx int) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(pages[idx], "\n"))
	if len(pages) > 1 {
		fmt.Fprintf(&b, "\n\nPage %d/%d", idx+1, len(pages))
	}
	return b.String()
}

func pageMarkup(plugin, sid string, idx, total int) *tele.ReplyMarkup {
	var row []tele.Btn
	if idx > 0 {
		row = append(row, tgui.Btn("◀", tgui.Data(plugin, "page", sid+":"+strconv.Itoa(idx-1))))
	}
	if idx < total-1 {
		row = append(row, tgui.Btn("▶", tgui.Data(plugin, "page", sid+":"+strconv.Itoa(idx+1))))
	}
	return tgui.NewInline().Row(row...).Markup()
}

func (p *Plugin) sendPaged(ctx context.Context, req *core.Request, title string, items []string, emptyMsg string, q pageQuery) error {
	if len(items) == 0 {
		_, err := req.Adapter.SendText(ctx, req.Chat, emptyMsg, &kit.SendOptions{DisablePreview: true})
		return err
	}
	pages := paginate(items, pageCharBudget)
	opt := &kit.SendOptions{DisablePreview: true}
	if len(pages) > 1 {
		sid := p.pager.put(q)
		opt.ReplyMarkupAdapter = pageMarkup(p.Name(), sid, 0, len(pages))
	}
	_, err := req.Adapter.SendText(ctx, req.Chat, renderPage(title, pages, 0), opt)
	return err
}

func (p *Plugin) Callbacks() []core.CallbackRoute {
	return []core.CallbackRoute{
		{
			Plugin:      p.Name(),
			Action:      "page",
			Description: "flip a name listing page",
			Access:      core.AccessModerator,
			Handle:      p.cbPage,
		},
	}
}

func (p *Plugin) cbPage(ctx context.Context, req *core.Request, payload string) error {
	cb := req.Update.Callback
	sid, pageStr, ok := strings.Cut(payload, ":")
	if !ok {
		return nil
	}
	idx, err := strconv.Atoi(pageStr)
	if err != nil {
		return nil
	}
	q, ok := p.pager.get(sid)
	if !ok {
		return req.Adapter.AnswerCallback(ctx, cb.ID, "expired, run the command again")
	}

	// recompute against the current pool
	all, err := req.Services.Names.List(ctx)
	if err != nil {
		_ = req.Adapter.AnswerCallback(ctx, cb.ID, "name pool API unavailable")
		return err
	}

	var (
		title string
		items []string
	)
	switch q.kind {
	case kindSearch:
		title = "Query results"
		items = searchPool(all, q.query)
	default:
		sort.Strings(all)
		title = fmt.Sprintf("Known off-topic names (%d total)", len(all))
		items = all
	}
	if len(items) == 0 {
		return req.Adapter.AnswerCallback(ctx, cb.ID, "nothing here anymore")
	}

	pages := paginate(items, pageCharBudget)
	if idx < 0 {
		idx = 0
	}
	if idx > len(pages)-1 {
		idx = len(pages) - 1
	}

	opt := &kit.SendOptions{DisablePreview: true}
	if len(pages) > 1 {
		opt.ReplyMarkupAdapter = pageMarkup(p.Name(), sid, idx, len(pages))
	}
	ref := kit.MessageRef{ChatID: req.Chat.ChatID, ThreadID: req.Chat.ThreadID, MessageID: cb.MessageID}
	return req.Adapter.EditText(ctx, ref, renderPage(title, pages, idx), opt)
}
