package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/evanlabs/checkerbot/core/logger"
	tghelpers "github.com/evanlabs/checkerbot/core/telegram/helpers"
	"github.com/evanlabs/checkerbot/core/telegram/keyboard"
	"github.com/evanlabs/checkerbot/session"
)

// fsmAdapter plugs the conversation FSM into the text router. Every plain
// text message from a user belongs to the conversation, so InProgress is
// unconditionally true; commands are intercepted by the router before this.
type fsmAdapter struct {
	app *App
}

func (f fsmAdapter) InProgress(int64) bool { return true }

func (f fsmAdapter) ManagerHandler(c tele.Context) error {
	return f.app.handleText(c)
}

// handleText feeds one message through the FSM. Long phases first post an
// interim notice, which is edited into the final answer when the run ends.
func (a *App) handleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	if msg := c.Message(); msg != nil && msg.Document != nil {
		return a.UnknownDocument()(c)
	}

	var notice *tele.Message
	progress := func(sig session.Signal) {
		text := a.renderProgress(sig)
		if text == "" {
			return
		}
		markup := keyboard.SingleCancelMarkup(cancelCallbackKey)
		msg, err := c.Bot().Send(c.Recipient(), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
		if err != nil {
			logger.Warn(ctx, "tg", "notice.send_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
			return
		}
		notice = msg
	}

	sig := a.fsm.HandleText(ctx, userID, c.Text(), progress)
	if sig.Kind == session.SignalReport && sig.Report != nil && a.usage != nil {
		_ = a.usage.RecordBatch(ctx, userID, sig.Report.Checked())
	}

	text, markup := a.renderSignal(sig)
	if text == "" {
		return nil
	}
	if notice != nil {
		_, err := c.Bot().Edit(notice, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
		return err
	}
	return tghelpers.SendMD(c, text, markup)
}
