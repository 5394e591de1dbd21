package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"gemini-session-client/internal/gemini"
	"gemini-session-client/internal/mediagroup"
	"gemini-session-client/internal/prompt"
	"gemini-session-client/internal/session"
	"gemini-session-client/internal/telegram"
)

const defaultFileCaption = "Describe these files."

// Messenger is the part of the Telegram client the handler talks to.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendReply(chatID int64, reply gemini.Reply) error
	DownloadFile(ctx context.Context, fileID string) (prompt.FileByBase64, error)
}

type Options struct {
	Telegram Messenger
	Sessions *session.Store[int64]
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	sessions   *session.Store[int64]
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		tg:       opts.Telegram,
		sessions: opts.Sessions,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if fileID, ok := attachedFile(msg); ok {
		return h.handleFile(ctx, chatID, userID, msg, fileID)
	}
	if msg.Document != nil {
		return h.tg.SendText(chatID, "❌ Only images and PDF documents are supported.")
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg.Text, gemini.ResponseText)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processFiles(ctx, group.ChatID, group.UserID, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID,
			"Send me text, photos or PDF documents and I will answer with Gemini.\n\n"+
				"Commands:\n"+
				"/json <prompt> - ask for a ```json answer\n"+
				"/history - show the conversation size\n"+
				"/clear - forget the conversation",
		)
	case "clear":
		h.sessions.Clear(userID)
		return h.tg.SendText(chatID, "✅ History cleared.")
	case "history":
		var history []gemini.Message
		h.sessions.Peek(userID, func(s *session.Session) {
			history = s.History()
		})
		return h.tg.SendText(chatID, summarize(history))
	case "json":
		text := strings.TrimSpace(msg.CommandArguments())
		if text == "" {
			return h.tg.SendText(chatID, "❌ Usage: /json <prompt>")
		}
		return h.handleText(ctx, chatID, userID, text, gemini.ResponseStructured)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Try /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID, userID int64, text string, rt gemini.ResponseType) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	h.tg.SendTyping(chatID)
	return h.send(ctx, chatID, userID, rt, prompt.Text{Text: text})
}

func (h *Handler) handleFile(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message, fileID string) error {
	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     msg.From.UserName,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	return h.processFiles(ctx, chatID, userID, msg.Caption, []string{fileID})
}

func (h *Handler) processFiles(ctx context.Context, chatID, userID int64, caption string, fileIDs []string) error {
	h.tg.SendTyping(chatID)

	files := make([]prompt.FileByBase64, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			file, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			files[i] = file
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("file download failed", "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the file from Telegram.")
	}

	caption = strings.TrimSpace(caption)
	if caption == "" {
		caption = defaultFileCaption
	}

	items := make([]prompt.Item, 0, len(files)+1)
	items = append(items, prompt.Text{Text: caption})
	for _, f := range files {
		items = append(items, f)
	}

	return h.send(ctx, chatID, userID, gemini.ResponseText, items...)
}

func (h *Handler) send(ctx context.Context, chatID, userID int64, rt gemini.ResponseType, items ...prompt.Item) error {
	var reply gemini.Reply
	err := h.sessions.Do(userID, func(s *session.Session) error {
		var err error
		reply, err = s.SendPrompt(ctx, rt, items...)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		h.logger.Error("gemini prompt failed", "user_id", userID, "err", err)
		return h.tg.SendText(chatID, userMessage(err))
	}

	if strings.TrimSpace(reply.Text) == "" && reply.Data == nil {
		return h.tg.SendText(chatID, "🤷 The model returned an empty answer.")
	}
	return h.tg.SendReply(chatID, reply)
}

// attachedFile returns the file to forward for photos and for documents
// Gemini accepts inline.
func attachedFile(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && prompt.ValidateMIME(strings.ToLower(msg.Document.MimeType)) == nil {
		return msg.Document.FileID, true
	}
	return "", false
}

func userMessage(err error) string {
	var gerr *gemini.Error
	switch {
	case errors.Is(err, gemini.ErrInvalidInput) && errors.As(err, &gerr):
		return "❌ " + gerr.Message
	case errors.Is(err, gemini.ErrAPI) && errors.As(err, &gerr):
		return "❌ Gemini rejected the request: " + gerr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "⌛ Gemini took too long to answer. Please try again."
	default:
		return "❌ Something went wrong. Please try again."
	}
}

func summarize(history []gemini.Message) string {
	if len(history) == 0 {
		return "History is empty."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "History: %d messages", len(history))

	const tail = 10
	start := max(0, len(history)-tail)
	if start > 0 {
		fmt.Fprintf(&b, " (last %d)", tail)
	}
	b.WriteString("\n")

	for _, m := range history[start:] {
		b.WriteString("\n")
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		if m.Part.IsInline() {
			b.WriteString("[" + m.Part.InlineData.MimeType + "]")
			continue
		}
		b.WriteString(preview(m.Part.Text, 80))
	}
	return b.String()
}

func preview(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	return string(r[:maxRunes]) + "…"
}
