package bot

import (
	"github.com/Spok95/inventory-bot/internal/conversation"
	"github.com/Spok95/inventory-bot/internal/infra/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

/*** HELPERS ***/

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.out.Send(msg); err != nil {
		metrics.SendFailures.Inc()
		b.log.Error("send failed", "err", err)
	}
}

// chattable превращает ответ движка в сообщение или документ Telegram.
func chattable(chatID int64, m conversation.Message) tgbotapi.Chattable {
	if d := m.Document; d != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: d.Name, Bytes: d.Data})
		doc.Caption = d.Caption
		if m.Keyboard != nil {
			doc.ReplyMarkup = replyKeyboard(m.Keyboard)
		}
		return doc
	}
	msg := tgbotapi.NewMessage(chatID, m.Text)
	if m.Keyboard != nil {
		msg.ReplyMarkup = replyKeyboard(m.Keyboard)
	}
	return msg
}
