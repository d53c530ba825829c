package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/corprag/leadgate/internal/form"
)

func TestEscapeHTML(t *testing.T) {
	cases := map[string]string{
		"plain":               "plain",
		"a & b":               "a &amp; b",
		"<script>x</script>":  "&lt;script&gt;x&lt;/script&gt;",
		`"quoted" 'single'`:   `"quoted" 'single'`,
		"&amp;":               "&amp;amp;",
		"ООО «Ромашка» <dev>": "ООО «Ромашка» &lt;dev&gt;",
	}
	for in, want := range cases {
		if got := EscapeHTML(in); got != want {
			t.Errorf("EscapeHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLeadMessage(t *testing.T) {
	lead := form.Lead{
		Intent:  form.IntentOnePager,
		Name:    "Анна <b>",
		Company: "Acme & Co",
		Email:   "anna@example.com",
		Phone:   "+79991234567",
	}
	at := time.Date(2026, 3, 1, 9, 30, 0, 123e6, time.FixedZone("MSK", 3*3600))

	msg := LeadMessage("req-1", lead, at)
	lines := strings.Split(msg, "\n")

	want := []string{
		"<b>Новая заявка с сайта CORPRAG</b>",
		"",
		"<b>Тип:</b> One-pager + демо",
		"<b>Имя:</b> Анна &lt;b&gt;",
		"<b>Компания:</b> Acme &amp; Co",
		"<b>Email:</b> anna@example.com",
		"<b>Телефон:</b> +79991234567",
		"<b>Комментарий:</b> —",
		"",
		"<b>Время:</b> 2026-03-01T06:30:00.123Z",
		"<b>Request ID:</b> <code>req-1</code>",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), msg)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestIntentLabel(t *testing.T) {
	if IntentLabel(form.IntentDemo) != "Демо" {
		t.Error("demo label")
	}
	if IntentLabel(form.IntentOnePager) != "One-pager + демо" {
		t.Error("one-pager label")
	}
}
