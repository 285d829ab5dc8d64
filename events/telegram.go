package events

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"campus-canteen/models"
	"campus-canteen/utils"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts new orders and orders that became ready to the canteen
// staff chat. Other events are ignored.
type Telegram struct {
	bot    sender
	chatID int64
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info("telegram notifier ready", "action", utils.ActionTelegramConnected, "bot", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// StaffMessage returns the chat text for event, or "" if staff need not be told.
func StaffMessage(event OrderEvent) string {
	switch {
	case event.Kind == KindOrderPlaced:
		return fmt.Sprintf("New order #%s from %s (shop %d): total %s",
			event.PickupToken, event.UserName, event.ShopID, event.Total.StringFixed(2))
	case event.Kind == KindOrderStatusChanged && event.NewStatus == models.OrderStatusReady:
		return fmt.Sprintf("Order #%s for %s is ready for pickup (shop %d)",
			event.PickupToken, event.UserName, event.ShopID)
	case event.Kind == KindOrderStatusChanged && event.NewStatus == models.OrderStatusCancelled:
		return fmt.Sprintf("Order #%s for %s was cancelled (shop %d)",
			event.PickupToken, event.UserName, event.ShopID)
	}
	return ""
}

func (t *Telegram) Publish(_ context.Context, event OrderEvent) error {
	text := StaffMessage(event)
	if text == "" {
		return nil
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) Close() error { return nil }
