// Package notify records accepted submissions. Recording is the terminal
// side effect of the submission pipeline: fields arrive already validated
// and sanitized, and nothing here can change the response the caller has
// decided on.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

// ContactSubmission is one accepted contact form payload.
type ContactSubmission struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Subject string
	Message string

	ClientID   string
	ReceivedAt time.Time
}

// QuoteSubmission is one accepted quote request payload.
type QuoteSubmission struct {
	CompanyName    string
	CompanySize    string
	Industry       string
	ServicesNeeded []string
	BudgetRange    string
	Timeline       string
	Description    string
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	GDPRConsent    bool

	QuoteRef   string
	ClientID   string
	ReceivedAt time.Time
}

// Notifier receives accepted submissions. Implementations are best-effort:
// a delivery failure must be swallowed (and logged), never surfaced.
type Notifier interface {
	ContactReceived(ctx context.Context, sub ContactSubmission)
	QuoteReceived(ctx context.Context, sub QuoteSubmission)
}

// NewQuoteRef derives a submission reference code from the current time:
// a fixed prefix plus the low-order digits of the unix-millisecond clock.
func NewQuoteRef(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "DV" + ms
}

// LogNotifier writes each submission as a structured log record and renders
// the plain-text summary an email integration would send. Actual delivery is
// a stub; the summary exists so wiring a mail provider later is a transport
// change, not a formatting one.
type LogNotifier struct {
	Log zerolog.Logger
}

var textPolicy = bluemonday.StrictPolicy()

// plainText strips any markup that survived sanitization and unescapes the
// entities bluemonday introduces, leaving mail-safe text.
func plainText(s string) string {
	return html.UnescapeString(textPolicy.Sanitize(s))
}

// ContactReceived implements Notifier.
func (n LogNotifier) ContactReceived(_ context.Context, sub ContactSubmission) {
	n.Log.Info().
		Str("form", "contact").
		Str("name", sub.Name).
		Str("email", sub.Email).
		Str("phone", sub.Phone).
		Str("company", sub.Company).
		Str("subject", sub.Subject).
		Str("message", sub.Message).
		Str("client_id", sub.ClientID).
		Time("received_at", sub.ReceivedAt).
		Msg("contact form submission")

	n.Log.Debug().Str("body", contactBody(sub)).Msg("notification body (delivery stubbed)")
}

// QuoteReceived implements Notifier.
func (n LogNotifier) QuoteReceived(_ context.Context, sub QuoteSubmission) {
	n.Log.Info().
		Str("form", "quote").
		Str("quote_ref", sub.QuoteRef).
		Str("company_name", sub.CompanyName).
		Str("company_size", sub.CompanySize).
		Str("industry", sub.Industry).
		Strs("services_needed", sub.ServicesNeeded).
		Str("budget_range", sub.BudgetRange).
		Str("timeline", sub.Timeline).
		Str("description", sub.Description).
		Str("contact_name", sub.ContactName).
		Str("contact_email", sub.ContactEmail).
		Str("contact_phone", sub.ContactPhone).
		Bool("gdpr_consent", sub.GDPRConsent).
		Str("client_id", sub.ClientID).
		Time("received_at", sub.ReceivedAt).
		Msg("quote form submission")

	n.Log.Debug().Str("body", quoteBody(sub)).Msg("notification body (delivery stubbed)")
}

func contactBody(sub ContactSubmission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nouveau message (%s)\n", plainText(sub.Subject))
	fmt.Fprintf(&b, "De: %s <%s>\n", plainText(sub.Name), plainText(sub.Email))
	if sub.Company != "" {
		fmt.Fprintf(&b, "Société: %s\n", plainText(sub.Company))
	}
	if sub.Phone != "" {
		fmt.Fprintf(&b, "Téléphone: %s\n", plainText(sub.Phone))
	}
	fmt.Fprintf(&b, "\n%s\n", plainText(sub.Message))
	return b.String()
}

func quoteBody(sub QuoteSubmission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Demande de devis %s\n", sub.QuoteRef)
	fmt.Fprintf(&b, "Entreprise: %s (%s, %s)\n",
		plainText(sub.CompanyName), plainText(sub.CompanySize), plainText(sub.Industry))
	fmt.Fprintf(&b, "Services: %s\n", plainText(strings.Join(sub.ServicesNeeded, ", ")))
	fmt.Fprintf(&b, "Budget: %s, Délai: %s\n", plainText(sub.BudgetRange), plainText(sub.Timeline))
	fmt.Fprintf(&b, "Contact: %s <%s> %s\n",
		plainText(sub.ContactName), plainText(sub.ContactEmail), plainText(sub.ContactPhone))
	fmt.Fprintf(&b, "\n%s\n", plainText(sub.Description))
	return b.String()
}
