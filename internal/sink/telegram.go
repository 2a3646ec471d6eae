package sink

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// TelegramNotifier доставляет сообщения через бота. Телеграм-чат с
// пользователем — основной канал напоминаний.
type TelegramNotifier struct {
	bot *bot.Bot
}

func NewTelegramNotifier(b *bot.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: b}
}

func (n *TelegramNotifier) SendToUser(ctx context.Context, tgID int64, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: tgID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message to %d: %w", tgID, err)
	}
	return nil
}
