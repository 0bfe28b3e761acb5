package events

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// Sender is satisfied by *tele.Bot.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier alerts the ground's admin chats about new bookings and
// payments.
type TelegramNotifier struct {
	bot     Sender
	chatIDs []int64
}

// NewTelegramBot builds an outbound-only bot; no updates are polled.
func NewTelegramBot(token string) (*tele.Bot, error) {
	bot, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return bot, nil
}

func NewTelegramNotifier(bot Sender, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs}
}

func (n *TelegramNotifier) Emit(_ context.Context, e Event) {
	msg := n.format(e)
	if msg == "" {
		return
	}
	for _, id := range n.chatIDs {
		if _, err := n.bot.Send(&tele.Chat{ID: id}, msg, &tele.SendOptions{ParseMode: tele.ModeHTML}); err != nil {
			log.Printf("telegram_send_failed chat_id=%d type=%s booking_id=%d err=%v", id, e.Type, e.BookingID, err)
		}
	}
}

func (n *TelegramNotifier) format(e Event) string {
	hours := make([]string, 0, len(e.Hours))
	for _, h := range e.Hours {
		hours = append(hours, fmt.Sprintf("%02d:00", h))
	}

	switch e.Type {
	case BookingCreated:
		return fmt.Sprintf(
			"<b>New booking request</b>\n\n"+
				"Number: <b>%s</b>\n"+
				"Customer: %s\n"+
				"Date: <b>%s</b>\n"+
				"Hours: %s\n"+
				"Total: %d\n"+
				"Remaining: %d",
			html.EscapeString(e.BookingNumber),
			html.EscapeString(e.CustomerName),
			e.Date,
			strings.Join(hours, ", "),
			e.Amount,
			e.Remaining,
		)
	case PaymentRecorded:
		return fmt.Sprintf(
			"<b>Payment recorded</b>\n\n"+
				"Number: <b>%s</b>\n"+
				"Date: %s\n"+
				"Remaining: %d\n"+
				"By: %s",
			html.EscapeString(e.BookingNumber),
			e.Date,
			e.Remaining,
			html.EscapeString(e.Actor),
		)
	}
	return ""
}
