// Package kit defines the platform-neutral transport types shared between
// the core, the chat adapter, and plugins.
package kit

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

// Update is a single inbound event from the chat platform.
type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int
	FromID       int64
	FromUsername string
	Text         string
}

type Callback struct {
	ID        string
	ChatID    int64
	ThreadID  int
	FromID    int64
	MessageID int
	Data      string
}

// ChatTarget addresses a chat (and optionally a forum thread) for sends.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

// MessageRef identifies an already-sent message, e.g. for edits.
type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// ReplyMarkupAdapter carries adapter-specific reply markup
	// (e.g. *tele.ReplyMarkup for Telegram). Core never inspects it.
	ReplyMarkupAdapter any
}

type Notification struct {
	Channel  string
	Priority int
	Target   ChatTarget
	Text     string
	Options  *SendOptions
}

type BotCommand struct {
	Command     string
	Description string
}

// Adapter is the transport boundary. Implementations translate platform
// updates into kit.Update values and perform outbound operations.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error

	// RenameChat changes a chat's display title.
	RenameChat(ctx context.Context, chatID int64, title string) error

	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
