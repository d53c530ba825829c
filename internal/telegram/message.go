package telegram

import (
	"strings"
	"time"

	"github.com/corprag/leadgate/internal/form"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes the three characters Telegram's HTML parse mode treats
// as markup.  Quotes are left alone; they are only special inside tags.
func EscapeHTML(s string) string { return htmlEscaper.Replace(s) }

// IntentLabel is the human label shown in the chat for an intent.
func IntentLabel(i form.Intent) string {
	if i == form.IntentOnePager {
		return "One-pager + демо"
	}
	return "Демо"
}

// LeadMessage renders the chat notification for an accepted lead.  Every
// interpolated value is escaped.  at is printed in UTC with milliseconds.
func LeadMessage(requestID string, lead form.Lead, at time.Time) string {
	comment := lead.Comment
	if comment == "" {
		comment = "—"
	}
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")

	return strings.Join([]string{
		"<b>Новая заявка с сайта CORPRAG</b>",
		"",
		"<b>Тип:</b> " + EscapeHTML(IntentLabel(lead.Intent)),
		"<b>Имя:</b> " + EscapeHTML(lead.Name),
		"<b>Компания:</b> " + EscapeHTML(lead.Company),
		"<b>Email:</b> " + EscapeHTML(lead.Email),
		"<b>Телефон:</b> " + EscapeHTML(lead.Phone),
		"<b>Комментарий:</b> " + EscapeHTML(comment),
		"",
		"<b>Время:</b> " + EscapeHTML(ts),
		"<b>Request ID:</b> <code>" + EscapeHTML(requestID) + "</code>",
	}, "\n")
}
