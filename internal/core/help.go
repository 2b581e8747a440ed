package core

import "strings"

// helpText renders /help output. Moderator commands carry a 🔒 tag and
// owner commands a 👑 tag so readers can tell which entries will answer
// them before trying.
func (m *CommandManager) helpText(path []string) string {
	m.mu.RLock()
	root, alias := m.root, m.alias
	m.mu.RUnlock()

	if len(path) == 0 {
		return rootHelp(root)
	}

	n := root.find(path)
	if n == nil {
		// a bare alias like "otn" resolves to its canonical route
		if len(path) == 1 {
			if leaf, ok := alias[path[0]]; ok && leaf != nil && leaf.cmd != nil {
				return m.helpText(splitRoute(leaf.cmd.Route))
			}
		}
		return "command not found. try /help"
	}
	if n.cmd == nil {
		return containerHelp(path, n)
	}
	return commandHelp(n)
}

func rootHelp(root *cmdNode) string {
	var b strings.Builder
	b.WriteString("📚 *Commands* (use /help <cmd> ...):")
	for _, name := range root.childNames() {
		n, _ := root.child(name)
		b.WriteString("\n- /")
		b.WriteString(name)
		if len(n.children) > 0 {
			b.WriteString(" …")
		}
		if n.cmd != nil {
			if d := n.cmd.Description; d != "" {
				b.WriteString(" — ")
				b.WriteString(d)
			}
			b.WriteString(accessTag(n.cmd))
		}
	}
	return b.String()
}

func containerHelp(path []string, n *cmdNode) string {
	prefix := strings.Join(path, " ")
	var b strings.Builder
	b.WriteString("📚 */")
	b.WriteString(prefix)
	b.WriteString("* subcommands:")
	for _, child := range n.childNames() {
		cn, _ := n.child(child)
		b.WriteString("\n- /")
		b.WriteString(prefix)
		b.WriteString(" ")
		b.WriteString(child)
		if cn.cmd != nil {
			if d := cn.cmd.Description; d != "" {
				b.WriteString(" — ")
				b.WriteString(d)
			}
			b.WriteString(accessTag(cn.cmd))
		}
	}
	b.WriteString("\nTip: /help ")
	b.WriteString(prefix)
	b.WriteString(" <subcommand>")
	return b.String()
}

func commandHelp(n *cmdNode) string {
	cmd := n.cmd
	var b strings.Builder
	b.WriteString("📌 *")
	b.WriteString(cmd.Route)
	b.WriteString("*")
	b.WriteString(accessTag(cmd))
	if cmd.Description != "" {
		b.WriteString("\n")
		b.WriteString(cmd.Description)
	}
	if cmd.Usage != "" {
		b.WriteString("\nUsage: `")
		b.WriteString(cmd.Usage)
		b.WriteString("`")
	}
	if len(cmd.Aliases) > 0 {
		b.WriteString("\nAliases: /")
		b.WriteString(strings.Join(cmd.Aliases, ", /"))
	}
	if len(n.children) > 0 {
		b.WriteString("\n\nSubcommands:")
		for _, child := range n.childNames() {
			cn, _ := n.child(child)
			b.WriteString("\n- ")
			b.WriteString(child)
			if cn.cmd != nil && cn.cmd.Description != "" {
				b.WriteString(" — ")
				b.WriteString(cn.cmd.Description)
			}
		}
	}
	return b.String()
}

func accessTag(c *Command) string {
	switch c.Access {
	case AccessOwnerOnly:
		return " 👑"
	case AccessModerator:
		return " 🔒"
	default:
		return ""
	}
}
