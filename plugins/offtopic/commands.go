package offtopic

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"otbot/internal/core"
	"otbot/internal/kit"
	"otbot/internal/services/names"
	"otbot/internal/textmatch"
)

const (
	// similarityCutoff rejects near-duplicate adds (use forceadd to override).
	similarityCutoff = 80
	// searchCutoff and searchLimit bound the fuzzy half of a search.
	searchCutoff = 70
	searchLimit  = 10
)

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Route:       "otname",
			Aliases:     []string{"otnames", "otn"},
			Description: "manage the off-topic channel name pool",
			Usage:       "/otname <add|forceadd|delete|list|search>",
			Access:      core.AccessModerator,
			Handle:      p.cmdHelp,
		},
		{
			Route:       "otname add",
			LiteralArgs: true,
			SubAliases:  []string{"a"},
			Description: "add a name to the pool (rejects near-duplicates)",
			Usage:       "/otname add <name...>",
			Access:      core.AccessModerator,
			Handle:      p.cmdAdd,
		},
		{
			Route:       "otname forceadd",
			LiteralArgs: true,
			SubAliases:  []string{"fa"},
			Description: "add a name, skipping the similarity check",
			Usage:       "/otname forceadd <name...>",
			Access:      core.AccessModerator,
			Handle:      p.cmdForceAdd,
		},
		{
			Route:       "otname delete",
			LiteralArgs: true,
			SubAliases:  []string{"remove", "rm", "del", "d"},
			Description: "remove a name from the pool",
			Usage:       "/otname delete <name...>",
			Access:      core.AccessModerator,
			Handle:      p.cmdDelete,
		},
		{
			Route:       "otname list",
			SubAliases:  []string{"l"},
			Description: "list all names in the pool",
			Usage:       "/otname list",
			Access:      core.AccessModerator,
			Handle:      p.cmdList,
		},
		{
			Route:       "otname search",
			LiteralArgs: true,
			SubAliases:  []string{"s"},
			Description: "search the pool by substring and similarity",
			Usage:       "/otname search <query...>",
			Access:      core.AccessModerator,
			Handle:      p.cmdSearch,
		},
	}
}

func (p *Plugin) cmdHelp(ctx context.Context, req *core.Request) error {
	var b strings.Builder
	b.WriteString("Manage the off-topic channel name pool.\n\n")
	b.WriteString("/otname add <name> - add a name (rejects near-duplicates)\n")
	b.WriteString("/otname forceadd <name> - add, skipping the similarity check\n")
	b.WriteString("/otname delete <name> - remove a name\n")
	b.WriteString("/otname list - list all names\n")
	b.WriteString("/otname search <query> - search by substring and similarity")
	_, err := req.Adapter.SendText(ctx, req.Chat, b.String(), &kit.SendOptions{DisablePreview: true})
	return err
}

func (p *Plugin) cmdAdd(ctx context.Context, req *core.Request) error {
	name, err := ParseName(req.Args)
	if err != nil {
		return p.reply(ctx, req, "❌ "+err.Error())
	}
	existing, err := req.Services.Names.List(ctx)
	if err != nil {
		return p.apiFail(ctx, req, err)
	}
	if m, ok := textmatch.Best(name, existing, similarityCutoff); ok {
		return p.reply(ctx, req, fmt.Sprintf(
			"❌ The channel name `%s` is too similar to `%s`, and thus was not added. Use `/otname forceadd` to override.",
			name, m.Value))
	}
	return p.addName(ctx, req, name)
}

func (p *Plugin) cmdForceAdd(ctx context.Context, req *core.Request) error {
	name, err := ParseName(req.Args)
	if err != nil {
		return p.reply(ctx, req, "❌ "+err.Error())
	}
	return p.addName(ctx, req, name)
}

func (p *Plugin) addName(ctx context.Context, req *core.Request, name string) error {
	if err := req.Services.Names.Add(ctx, name); err != nil {
		return p.apiFail(ctx, req, err)
	}
	return p.reply(ctx, req, fmt.Sprintf("👌 Added `%s` to the names list.", name))
}

func (p *Plugin) cmdDelete(ctx context.Context, req *core.Request) error {
	name, err := ParseName(req.Args)
	if err != nil {
		return p.reply(ctx, req, "❌ "+err.Error())
	}
	if err := req.Services.Names.Delete(ctx, name); err != nil {
		if names.IsNotFound(err) {
			return p.reply(ctx, req, fmt.Sprintf("❌ `%s` is not in the names list.", name))
		}
		return p.apiFail(ctx, req, err)
	}
	return p.reply(ctx, req, fmt.Sprintf("👌 Removed `%s` from the names list.", name))
}

func (p *Plugin) cmdList(ctx context.Context, req *core.Request) error {
	all, err := req.Services.Names.List(ctx)
	if err != nil {
		return p.apiFail(ctx, req, err)
	}
	sort.Strings(all)
	title := fmt.Sprintf("Known off-topic names (%d total)", len(all))
	return p.sendPaged(ctx, req, title, all,
		"Hmmm, seems like there's nothing here yet.",
		pageQuery{kind: kindList})
}

func (p *Plugin) cmdSearch(ctx context.Context, req *core.Request) error {
	queryName, err := ParseName(req.Args)
	if err != nil {
		return p.reply(ctx, req, "❌ "+err.Error())
	}
	query := normalizeName(queryName)

	all, err := req.Services.Names.List(ctx)
	if err != nil {
		return p.apiFail(ctx, req, err)
	}
	found := searchPool(all, query)
	return p.sendPaged(ctx, req, "Query results", found,
		"Nothing found.",
		pageQuery{kind: kindSearch, query: query})
}

// searchPool matches query against the pool: substring hits on the
// normalized form, unioned with the closest fuzzy matches, sorted.
func searchPool(all []string, query string) []string {
	norm := make(map[string]string, len(all)) // normalized -> original
	keys := make([]string, 0, len(all))
	for _, n := range all {
		k := normalizeName(n)
		norm[k] = n
		keys = append(keys, k)
	}

	matched := map[string]bool{}
	for _, k := range keys {
		if strings.Contains(k, query) {
			matched[norm[k]] = true
		}
	}
	for _, m := range textmatch.CloseMatches(query, keys, searchLimit, searchCutoff) {
		matched[norm[m.Value]] = true
	}

	out := make([]string, 0, len(matched))
	for n := range matched {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (p *Plugin) reply(ctx context.Context, req *core.Request, text string) error {
	_, err := req.Adapter.SendText(ctx, req.Chat, text, &kit.SendOptions{ParseMode: "Markdown", DisablePreview: true})
	return err
}

func (p *Plugin) apiFail(ctx context.Context, req *core.Request, err error) error {
	_ = p.reply(ctx, req, "⚠️ The name pool API is unavailable right now, try again later.")
	return err
}
