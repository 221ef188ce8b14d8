// Package bot wires the conversation FSM and the bulk checker into the
// Telegram transport. All user-facing prose lives here; the core packages
// emit structured signals only.
package bot

import (
	"fmt"

	"github.com/evanlabs/checkerbot/checker"
	coreconfig "github.com/evanlabs/checkerbot/core/config"
	tg "github.com/evanlabs/checkerbot/core/telegram"
	"github.com/evanlabs/checkerbot/core/telegram/router"
	"github.com/evanlabs/checkerbot/core/telegram/ui"
	"github.com/evanlabs/checkerbot/mtclient"
	"github.com/evanlabs/checkerbot/session"
	"github.com/evanlabs/checkerbot/storage"
)

// Options carries everything the bot needs to assemble itself.
type Options struct {
	Core       *coreconfig.Config
	Checker    checker.Config
	Session    session.Config
	Dialer     mtclient.Dialer
	Usage      *storage.Store
	SupportURL string
}

// App is the assembled bot application.
type App struct {
	cfg        *coreconfig.Config
	fsm        *session.FSM
	usage      *storage.Store
	reg        *tg.Registry
	supportURL string
}

var _ ui.FallbackProvider = (*App)(nil)

// New builds the checking pipeline and registers all handlers.
func New(opts Options) (*App, error) {
	if opts.Core == nil {
		return nil, fmt.Errorf("bot: nil core config")
	}
	if opts.Dialer == nil {
		return nil, fmt.Errorf("bot: nil dialer")
	}

	normalizer := checker.NewNormalizer(opts.Checker.NormalizerConfigOf())
	prober := checker.NewProbeRunner(opts.Dialer)
	validator := checker.NewCredentialValidator(opts.Dialer)
	bulk := checker.NewBulkChecker(prober, normalizer, opts.Checker.MaxBatchSize, opts.Checker.InterCallDelay())

	store := session.NewStore()
	fsm := session.New(store, validator, bulk, opts.Session, opts.Checker.Policy())

	app := &App{
		cfg:        opts.Core,
		fsm:        fsm,
		usage:      opts.Usage,
		reg:        tg.NewRegistry(),
		supportURL: opts.SupportURL,
	}
	app.registerCommands()
	app.registerCallbacks()
	app.reg.SetTextFallback(app.UnknownText())
	return app, nil
}

// TelegramRunOptions assembles routes and middleware for the runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(fsmAdapter{app: a}, a.reg, router.TextOptions{
		UnknownText:     a.UnknownText(),
		UnknownDocument: a.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(a.reg, router.CallbackOptions{
		NotFound: a.UnknownCallback(),
	}))

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
	}, nil
}
