// integrations/telegram/notifier.go
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts operational messages into one team chat.
type Notifier struct {
	bot    sender
	chatID int64
}

// NewNotifier logs the bot in (getMe) and returns a notifier bound to chatID.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) Send(message string) error {
	msg := tgbotapi.NewMessage(n.chatID, message)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
