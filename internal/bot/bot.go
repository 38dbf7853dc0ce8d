package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spok95/inventory-bot/internal/conversation"
	"github.com/Spok95/inventory-bot/internal/infra/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleTimeout предел на обработку одного сообщения вместе с походами в БД.
const handleTimeout = 30 * time.Second

const helpText = "ℹ️ Inventory bot\n\n" +
	"➕ Add new item: barcode, expiry date, quantity, name.\n" +
	"🗑️ Add damaged item: barcode, quantity, reason; stock is reduced automatically.\n" +
	"📋 / 📦 List items and damage reports, 📤 export everything to Excel.\n\n" +
	"/start main menu, /cancel abort the current step."

// Conversation диалоговый движок, которому транспорт отдаёт текст.
type Conversation interface {
	Handle(ctx context.Context, in conversation.Input) conversation.Reply
	Start(ctx context.Context, in conversation.Input) conversation.Reply
	Cancel(ctx context.Context, in conversation.Input) conversation.Reply
	Abort(ctx context.Context, in conversation.Input) conversation.Reply
}

var _ Conversation = (*conversation.Engine)(nil)

// Sender часть tgbotapi.BotAPI, через которую уходят ответы.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api  *tgbotapi.BotAPI
	out  Sender
	log  *slog.Logger
	conv Conversation
	disp *dispatcher
}

func New(api *tgbotapi.BotAPI, log *slog.Logger, conv Conversation, workers int) *Bot {
	b := newBot(api, log, conv, workers)
	b.api = api
	return b
}

func newBot(out Sender, log *slog.Logger, conv Conversation, workers int) *Bot {
	return &Bot{out: out, log: log, conv: conv, disp: newDispatcher(log, workers)}
}

// Run long polling до отмены ctx; перед выходом дожидается уже принятых сообщений.
func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()
	return b.serve(ctx, updates)
}

func (b *Bot) serve(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer b.disp.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.onUpdate(ctx, upd)
		}
	}
}

func (b *Bot) onUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	// обработка не обрывается на середине при остановке
	hctx := context.WithoutCancel(ctx)
	b.disp.Submit(msg.Chat.ID, func() {
		ctx, cancel := context.WithTimeout(hctx, handleTimeout)
		defer cancel()
		b.onMessage(ctx, msg)
	})
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	in := conversation.Input{SessionID: msg.Chat.ID, Text: msg.Text}
	if msg.From != nil {
		in.UserID = msg.From.ID
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.Panics.Inc()
			b.log.Error("message handler panicked", "chat_id", in.SessionID, "panic", r)
			b.reply(in.SessionID, b.conv.Abort(ctx, in))
		}
	}()

	if !msg.IsCommand() {
		b.reply(in.SessionID, b.conv.Handle(ctx, in))
		return
	}

	b.log.Info("command", "chat_id", in.SessionID, "user_id", in.UserID, "cmd", msg.Command())
	switch msg.Command() {
	case "cancel":
		b.reply(in.SessionID, b.conv.Cancel(ctx, in))
	case "help":
		b.send(tgbotapi.NewMessage(in.SessionID, helpText))
		b.reply(in.SessionID, b.conv.Start(ctx, in))
	default:
		// /start и всё незнакомое
		b.reply(in.SessionID, b.conv.Start(ctx, in))
	}
}

func (b *Bot) reply(chatID int64, r conversation.Reply) {
	for _, m := range r.Messages {
		b.send(chattable(chatID, m))
	}
}
