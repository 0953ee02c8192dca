package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/telebot.v4"

	botpkg "github.com/NastyaGoryachaya/exam-slot-notifier/internal/bot"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/config"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/infra/db"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/infra/niteapi"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/metrics"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/notifier"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/publisher"
	repopg "github.com/NastyaGoryachaya/exam-slot-notifier/internal/repository/postgres"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/scheduler"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/service/checker"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/service/dispatch"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/service/subscription"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/transport/httptransport"
	"github.com/NastyaGoryachaya/exam-slot-notifier/pkg/logger"
)

type App struct {
	cfg *config.Config
	log *slog.Logger

	pool *pgxpool.Pool
	e    *echo.Echo
	serv *http.Server

	baselineRepo   *repopg.BaselineRepo
	subscriberRepo *repopg.SubscriberRepo

	checker   *checker.Service
	scheduler *scheduler.Scheduler
	schedDone chan struct{}
	publisher *publisher.RabbitMQ

	bot *botpkg.Bot
}

func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(&cfg.Logger)

	pool, err := db.NewPool(&cfg.Postgres)
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, log: log, pool: pool}

	app.baselineRepo = repopg.NewBaselineRepo(pool)
	app.subscriberRepo = repopg.NewSubscriberRepo(pool)

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	subsService := subscription.NewService(app.subscriberRepo, log)

	// Каналы доставки. Telegram обязателен для бота подписок;
	// WhatsApp подключается только при заданном провайдере.
	registry := notifier.NewRegistry()

	if cfg.Telegram.Enabled {
		token := strings.TrimSpace(cfg.Telegram.Token)
		if token == "" {
			log.Error("telegram enabled but TELEGRAM_BOT_TOKEN is empty")
			return nil, errors.New("telegram token is empty")
		}

		tb, err := telebot.NewBot(telebot.Settings{
			Token:  token,
			Poller: &telebot.LongPoller{Timeout: cfg.Telegram.LongPollTimeout},
		})
		if err != nil {
			log.Error("telegram init failed", slog.String("error", err.Error()))
			return nil, err
		}

		registry.Add(notifier.NewTelegramTransport(tb, cfg.Telegram.SendRatePerSecond, cfg.Telegram.SendTimeout))
		app.bot = botpkg.New(tb, subsService, log)
	}

	if cfg.WhatsApp.Enabled && cfg.WhatsApp.BaseURL != "" {
		registry.Add(notifier.NewWhatsAppTransport(cfg.WhatsApp))
	}

	if cfg.AMQP.Enabled {
		pub, err := publisher.NewRabbitMQ(cfg.AMQP, log)
		if err != nil {
			log.Error("rabbitmq init failed", slog.String("error", err.Error()))
			return nil, err
		}
		app.publisher = pub
	}

	if registry.Len() == 0 {
		log.Warn("no delivery transports configured, detected slots will only reach the event log")
	}

	dispatcher := dispatch.NewDispatcher(app.subscriberRepo, registry, m, log, cfg.Checker.DispatchWorkers)

	provider := niteapi.NewClient(cfg.Nite, log)

	var eventPublisher checker.EventPublisher
	if app.publisher != nil {
		eventPublisher = app.publisher
	}
	app.checker = checker.NewService(provider, app.baselineRepo, dispatcher, eventPublisher, m, log)

	if cfg.Checker.Enabled {
		app.scheduler = scheduler.NewScheduler(app.checker, cfg.Checker.IntervalMin, cfg.Checker.IntervalMax, log)
	}

	e := echo.New()
	e.HideBanner = true
	app.e = e

	sh := httptransport.NewStatusHandler(log, app.baselineRepo, promRegistry, cfg.Server.ReadTimeout)
	sh.RegisterRoutes(e)

	app.serv = &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Handler:      e,
	}

	log.Info("app initialized",
		slog.Bool("checker_enabled", cfg.Checker.Enabled),
		slog.Bool("telegram_enabled", cfg.Telegram.Enabled),
		slog.Bool("whatsapp_enabled", cfg.WhatsApp.Enabled),
		slog.Bool("amqp_enabled", cfg.AMQP.Enabled),
		slog.String("http_addr", cfg.Server.Addr),
	)
	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.log.Info("starting checker scheduler")
		a.schedDone = make(chan struct{})
		go func() {
			a.scheduler.Start(ctx)
			close(a.schedDone)
		}()
	}

	if a.bot != nil {
		a.log.Info("starting subscription bot")
		go a.bot.Start()
	}

	a.log.Info("starting server", slog.String("addr", a.cfg.Server.Addr))
	go func() {
		if err := a.e.StartServer(a.serv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()

	// Начатый цикл проверки дорабатывает до конца: пул соединений нельзя
	// закрывать, пока его фиксации ещё в полёте.
	if a.schedDone != nil {
		a.log.Info("waiting for in-flight check cycle")
		<-a.schedDone
	}

	return a.Shutdown(context.Background())
}

func (a *App) Shutdown(ctx context.Context) error {
	shCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.e != nil {
		if err := a.e.Shutdown(shCtx); err != nil {
			a.log.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.bot != nil {
		a.bot.Stop()
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Error("rabbitmq close error", slog.String("error", err.Error()))
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.log.Info("application stopped")
	return nil
}
