package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/evanlabs/checkerbot/checker"
	"github.com/evanlabs/checkerbot/core/telegram/format"
	"github.com/evanlabs/checkerbot/core/telegram/keyboard"
	"github.com/evanlabs/checkerbot/session"
)

const (
	maxListedNumbers  = 20
	maxListedInvalid  = 5
	maxListedFailures = 5
)

const (
	promptIDText = "Send your *API ID* (the numeric identifier from my.telegram.org)."

	promptSecretText = "API ID saved. Now send your *API hash* (32 hex characters)."

	badIDText = "That does not look like an API ID. Send the numeric identifier " +
		"from my.telegram.org, digits only."

	badSecretText = "That does not look like an API hash. Send the 32-character " +
		"hex string from my.telegram.org."

	validatingText = "Verifying your credentials..."

	credentialsValidText = "Credentials verified. ✅\n\n" +
		"Send phone numbers to check, separated by commas, spaces, or new lines."

	credentialsRejectedText = "Those credentials were rejected by Telegram. ❌\n\n" +
		"Setup starts over. Send your *API ID*."

	credentialsDiedText = "Your credentials stopped working mid-check, so the batch " +
		"was aborted. Partial results are below.\n\n" +
		"Setup starts over. Send your *API ID*."

	emptyBatchText = "I found no phone numbers in that message. Send numbers " +
		"separated by commas, spaces, or new lines."

	busyText = "A previous request of yours is still running. Wait for it to finish."
)

// renderSignal maps an FSM signal to the message text and optional markup.
func (a *App) renderSignal(sig session.Signal) (string, *tele.ReplyMarkup) {
	switch sig.Kind {
	case session.SignalPromptID:
		return promptIDText, nil
	case session.SignalBadID:
		return badIDText, nil
	case session.SignalIDAccepted:
		return promptSecretText, nil
	case session.SignalBadSecret:
		return badSecretText, nil
	case session.SignalCredentialsValid:
		return credentialsValidText, nil
	case session.SignalCredentialsRejected:
		return credentialsRejectedText, a.supportMarkup()
	case session.SignalEmptyBatch:
		return emptyBatchText, nil
	case session.SignalBusy:
		return busyText, nil
	case session.SignalReport:
		return a.renderReport(sig.Report), a.supportMarkup()
	default:
		return "", nil
	}
}

// renderProgress produces the interim notice for long-running phases.
// An empty string means no notice is sent.
func (a *App) renderProgress(sig session.Signal) string {
	switch sig.Kind {
	case session.SignalValidating:
		return validatingText
	case session.SignalChecking:
		noun := "numbers"
		if sig.Count == 1 {
			noun = "number"
		}
		return fmt.Sprintf("Checking %d %s, this may take a while...", sig.Count, noun)
	default:
		return ""
	}
}

func (a *App) renderReport(r *checker.BatchReport) string {
	if r == nil {
		return emptyBatchText
	}

	var b strings.Builder
	if r.CredentialsInvalidated {
		b.WriteString(credentialsDiedText)
		b.WriteString("\n\n")
	}

	b.WriteString("*Check complete.*\n")
	fmt.Fprintf(&b, "Submitted: %d, checked: %d\n", r.Submitted, r.Checked())
	if r.Truncated > 0 {
		fmt.Fprintf(&b, "_%d extra numbers were dropped; send them in another batch._\n", r.Truncated)
	}

	writeNumberSection(&b, "✅ Registered", r.Registered, maxListedNumbers)
	writeNumberSection(&b, "🚫 Not registered", r.NotRegistered, maxListedNumbers)
	writeNumberSection(&b, "⚠️ Invalid format", r.InvalidFormat, maxListedInvalid)

	if len(r.TransientFailures) > 0 {
		fmt.Fprintf(&b, "\n*❓ Could not check (%d)*\n", len(r.TransientFailures))
		for i, f := range r.TransientFailures {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "_... and %d more_\n", len(r.TransientFailures)-maxListedFailures)
				break
			}
			fmt.Fprintf(&b, "`%s`\n", mdSafe(f.Phone))
		}
	}

	return b.String()
}

func writeNumberSection(b *strings.Builder, title string, numbers []string, limit int) {
	fmt.Fprintf(b, "\n*%s (%d)*\n", title, len(numbers))
	if len(numbers) == 0 {
		b.WriteString("_none_\n")
		return
	}
	for i, n := range numbers {
		if i == limit {
			fmt.Fprintf(b, "_... and %d more_\n", len(numbers)-limit)
			return
		}
		fmt.Fprintf(b, "`%s`\n", mdSafe(n))
	}
}

// mdSafe escapes user-supplied tokens so malformed input cannot break the
// Markdown rendering of the report.
func mdSafe(s string) string {
	escaped, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return escaped
}

func (a *App) supportMarkup() *tele.ReplyMarkup {
	if a.supportURL == "" {
		return nil
	}
	return keyboard.SingleURLMarkup("📨 Contact support", a.supportURL)
}
