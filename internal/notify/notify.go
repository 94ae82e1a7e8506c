// Package notify announces new orders to the shop operators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/shop"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	timeLayout       = "2006-01-02 15:04:05 UTC"
	orderMessageHead = "🛒 <b>НОВЫЙ ЗАКАЗ #%d</b>\n\n"
	botAPITimeout    = 10 * time.Second
)

// ErrInvalidNotifierConfig marks a notifier built without its collaborators.
var ErrInvalidNotifierConfig = errors.New("invalid notifier config")

// Sender is the part of the bot API used to deliver messages.
type Sender interface {
	Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts order announcements to an operators chat.
type Telegram struct {
	sender Sender
	chatID int64
}

// NewTelegram builds a notifier that sends through sender to chatID.
func NewTelegram(sender Sender, chatID int64) (*Telegram, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: sender is nil", ErrInvalidNotifierConfig)
	}
	if chatID == 0 {
		return nil, fmt.Errorf("%w: chat id is required", ErrInvalidNotifierConfig)
	}
	return &Telegram{sender: sender, chatID: chatID}, nil
}

// NewTelegramFromToken connects to the bot API with token.
func NewTelegramFromToken(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: botAPITimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return NewTelegram(bot, chatID)
}

// NotifyOrder sends the order announcement. The bot API call itself ignores
// contexts, so NotifyOrder stops waiting for it once ctx is done.
func (telegram *Telegram) NotifyOrder(ctx context.Context, notification shop.OrderNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message := tgbotapi.NewMessage(telegram.chatID, FormatOrderMessage(notification))
	message.ParseMode = tgbotapi.ModeHTML
	sent := make(chan error, 1)
	go func() {
		_, err := telegram.sender.Send(message)
		sent <- err
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("send order notification: %w", ctx.Err())
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("send order notification: %w", err)
		}
		return nil
	}
}

// FormatOrderMessage renders the HTML announcement of a new order.
func FormatOrderMessage(notification shop.OrderNotification) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, orderMessageHead, notification.OrderID)
	fmt.Fprintf(&builder, "🔖 <b>Номер:</b> %s\n", escape(notification.Reference))
	fmt.Fprintf(&builder, "👤 <b>Покупатель:</b> %s\n", escape(notification.Customer))
	fmt.Fprintf(&builder, "📦 <b>Товар:</b> %s\n", escape(notification.ProductName))
	fmt.Fprintf(&builder, "💰 <b>Сумма:</b> %s\n", notification.Amount.StringFixed(2))
	fmt.Fprintf(&builder, "💳 <b>Способ оплаты:</b> %s\n", strings.ToUpper(notification.PaymentMethod.String()))
	fmt.Fprintf(&builder, "⏰ <b>Время:</b> %s\n\n", notification.CreatedAt.UTC().Format(timeLayout))
	builder.WriteString("<i>Статус: ⏳ Ожидает оплаты</i>")
	return builder.String()
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, text)
}

// Nop drops every notification.
type Nop struct{}

// NotifyOrder implements shop.OrderNotifier.
func (Nop) NotifyOrder(context.Context, shop.OrderNotification) error {
	return nil
}
