package bot

import (
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/evanlabs/checkerbot/core/logger"
	"github.com/evanlabs/checkerbot/core/telegram/callbacks"
	"github.com/evanlabs/checkerbot/core/telegram/commands"
	tghelpers "github.com/evanlabs/checkerbot/core/telegram/helpers"
	"github.com/evanlabs/checkerbot/session"
	"github.com/evanlabs/checkerbot/storage"
)

const cancelCallbackKey = "chk_cancel"

const welcomeText = "👋 This bot checks which phone numbers are registered on Telegram.\n\n" +
	"You need your own API credentials from my.telegram.org. " +
	"They are held in memory for this session only and are never stored.\n\n" +
	promptIDText

const helpText = "*How it works*\n\n" +
	"1. Send your *API ID* from my.telegram.org\n" +
	"2. Send your *API hash*\n" +
	"3. Send phone numbers, separated by commas, spaces, or new lines\n\n" +
	"Numbers are checked one by one with a delay between calls, so large " +
	"batches take a while.\n\n" +
	"*Commands*\n" +
	"/new - start over with fresh credentials\n" +
	"/cancel - same as /new\n" +
	"/status - your session and usage\n" +
	"/help - this message"

func (a *App) registerCommands() {
	a.reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start the bot and set up credentials",
	})
	a.reg.RegisterCommand("/new", commands.Command{
		Handler:     a.handleNew,
		Description: "Start over with fresh credentials",
		Aliases:     []string{"reset"},
	})
	a.reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleNew,
		Description: "Drop the current session and start over",
	})
	a.reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "How to use the bot",
	})
	a.reg.RegisterCommand("/status", commands.Command{
		Handler:     a.handleStatus,
		Description: "Show your session and usage",
	})
	a.reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Global usage totals",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) registerCallbacks() {
	_ = a.reg.RegisterCallback(cancelCallbackKey, a.handleCancelCallback)
}

func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	if a.usage != nil {
		if err := a.usage.Touch(ctx, userID); err != nil {
			logger.Warn(ctx, "service.usage", "touch.failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	}

	sig := a.fsm.Reset(ctx, userID)
	if sig.Kind == session.SignalBusy {
		return tghelpers.SendMD(c, busyText)
	}
	return tghelpers.SendMD(c, welcomeText, a.supportMarkup())
}

func (a *App) handleNew(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	sig := a.fsm.Reset(ctx, c.Sender().ID)
	if sig.Kind == session.SignalBusy {
		return tghelpers.SendMD(c, busyText)
	}
	return tghelpers.SendMD(c, "Session cleared. 🔄\n\n"+promptIDText)
}

func (a *App) handleHelp(c tele.Context) error {
	return tghelpers.SendMD(c, helpText, a.supportMarkup())
}

func (a *App) handleStatus(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	text := fmt.Sprintf("Active sessions on this bot: %d\n", a.fsm.ActiveSessions())
	if a.usage != nil {
		stats, err := tghelpers.CurrentUser[storage.UserStats](ctx, a.usage, userID)
		if err != nil {
			return tghelpers.SendMD(c, text+"\n_Usage counters are unavailable right now._")
		}
		text += fmt.Sprintf("\n*Your usage*\nBatches run: %d\nNumbers checked: %d",
			stats.BatchesRun, stats.NumbersChecked)
	}
	return tghelpers.SendMD(c, text)
}

func (a *App) handleStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	if a.usage == nil {
		return tghelpers.SendMD(c, "_Usage counters are not configured._")
	}
	totals, err := a.usage.GlobalTotals(ctx)
	if err != nil {
		return fmt.Errorf("load usage totals: %w", err)
	}
	return tghelpers.SendMD(c, fmt.Sprintf(
		"*Usage totals*\nUsers: %d\nBatches run: %d\nNumbers checked: %d",
		totals.Users, totals.BatchesRun, totals.NumbersChecked,
	))
}

func (a *App) handleCancelCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	sig := a.fsm.Reset(ctx, c.Sender().ID)
	if sig.Kind == session.SignalBusy {
		return tghelpers.EditOrSendMD(c, busyText)
	}
	return tghelpers.EditOrSendMD(c, "Session cleared. 🔄\n\n"+promptIDText)
}

// UnknownText handles text arriving outside any known flow. With the FSM
// catching all text this only fires when no FSM is wired.
func (a *App) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendMD(c, "I did not understand that. Try /help.")
	}
}

// UnknownDocument rejects file uploads; the bot only reads plain text.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendMD(c, "Send phone numbers as plain text, not as a file.")
	}
}

// UnknownCallback answers stale inline buttons.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		logger.Debug(ctx, "tg", "callback.unknown",
			slog.String("cb_key", callbacks.CallbackKey(c)),
		)
		_ = c.Respond(&tele.CallbackResponse{Text: "This button has expired"})
		return nil
	}
}
