package telegram

import (
	"strings"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/go-telegram/bot/models"
)

// Update is a Bot API update as delivered to the webhook.
type Update = models.Update

// EventFromUpdate converts u into a domain event. ok is false for updates
// the workflows ignore (edited messages, stickers, group joins).
func EventFromUpdate(u *Update) (domain.Event, bool) {
	switch {
	case u == nil:
		return domain.Event{}, false

	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		ev := domain.Event{
			From:     domain.Identity(q.From.ID),
			Kind:     domain.EventCallback,
			Data:     q.Data,
			FromName: q.From.FirstName,
		}
		switch {
		case q.Message.Message != nil:
			ev.Message = domain.MessageRef(q.Message.Message.ID)
		case q.Message.InaccessibleMessage != nil:
			ev.Message = domain.MessageRef(q.Message.InaccessibleMessage.MessageID)
		}
		return ev, true

	case u.Message != nil && u.Message.From != nil:
		m := u.Message
		ev := domain.Event{
			From:     domain.Identity(m.From.ID),
			FromName: m.From.FirstName,
			Message:  domain.MessageRef(m.ID),
		}
		switch {
		case m.Contact != nil:
			name := strings.TrimSpace(m.Contact.FirstName + " " + m.Contact.LastName)
			ev.Kind = domain.EventContact
			ev.Contact = &domain.Contact{
				Identity: domain.Identity(m.Contact.UserID),
				Name:     name,
				Phone:    m.Contact.PhoneNumber,
			}
		case strings.HasPrefix(m.Text, "/"):
			ev.Kind = domain.EventCommand
			ev.Data = commandName(m.Text)
		case m.Text != "":
			ev.Kind = domain.EventText
			ev.Data = m.Text
		default:
			return domain.Event{}, false
		}
		return ev, true
	}
	return domain.Event{}, false
}

// commandName strips the slash, the bot mention and any arguments:
// "/start@staff_bot promo" becomes "start".
func commandName(text string) string {
	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// CallbackID returns the id to acknowledge, or "".
func CallbackID(u *Update) string {
	if u == nil || u.CallbackQuery == nil {
		return ""
	}
	return u.CallbackQuery.ID
}
