package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/internal/dal/blobstore"
	"github.com/wildwest/orderbot/internal/dal/orderstore"
	"github.com/wildwest/orderbot/internal/dal/rabbitmq"
	"github.com/wildwest/orderbot/internal/dal/recordstore/postgres"
	"github.com/wildwest/orderbot/internal/jaeger"
	"github.com/wildwest/orderbot/internal/service/ratelimit"
	"github.com/wildwest/orderbot/internal/service/services/adminsvc"
	"github.com/wildwest/orderbot/internal/service/services/catalogsvc"
	"github.com/wildwest/orderbot/internal/service/services/healthsvc"
	"github.com/wildwest/orderbot/internal/service/services/ordersvc"
	"github.com/wildwest/orderbot/internal/service/services/trackingsvc"
	"github.com/wildwest/orderbot/internal/service/sessions"
	"github.com/wildwest/orderbot/internal/transport/channel"
	httptransport "github.com/wildwest/orderbot/internal/transport/http"
	"github.com/wildwest/orderbot/internal/worker/dispatch"
	"github.com/wildwest/orderbot/internal/worker/sweeper"
)

// App represents the application.
type App struct {
	dispatcher     *dispatch.Worker
	sweeper        *sweeper.Worker
	transport      *httptransport.HTTPTransport
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	stopTracing    func(ctx context.Context) error
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	stopTracing := jaeger.MustSetup()

	postgresClient := postgres.MustNewClient()
	blobClient := blobstore.MustNewS3Client()
	rabbitClient := rabbitmq.MustNewClient()
	botChannel := channel.MustNewAMQPChannel(rabbitClient)

	store := orderstore.MustNewAdapter(
		orderstore.WithRecordStore(postgresClient),
		orderstore.WithBlobStore(blobClient),
	)

	catalogSvc := catalogsvc.MustNewService(
		catalogsvc.WithFetcher(store),
	)
	orderSvc := ordersvc.MustNewService(
		ordersvc.WithCatalog(catalogSvc),
		ordersvc.WithStore(store),
		ordersvc.WithChannel(botChannel),
	)
	trackingSvc := trackingsvc.MustNewService(
		trackingsvc.WithStore(store),
		trackingsvc.WithChannel(botChannel),
	)
	adminSvc := adminsvc.MustNewService(
		adminsvc.WithStore(store),
		adminsvc.WithChannel(botChannel),
	)
	healthSvc := healthsvc.MustNewService(
		healthsvc.WithPinger(store),
	)

	sessionStore := sessions.NewStore()

	dispatcher := dispatch.MustNewWorker(
		dispatch.WithConsumer(botChannel),
		dispatch.WithChannel(botChannel),
		dispatch.WithSessions(sessionStore),
		dispatch.WithUserLimiter(newUserLimiter()),
		dispatch.WithOrderService(orderSvc),
		dispatch.WithTrackingService(trackingSvc),
		dispatch.WithAdminService(adminSvc),
		dispatch.WithHealthService(healthSvc),
	)
	sessionSweeper := sweeper.MustNewWorker(
		sweeper.WithSessions(sessionStore),
		sweeper.WithChannel(botChannel),
	)

	transport := httptransport.NewHTTPTransport(healthSvc)
	transport.RegisterRoutes()

	return &App{
		dispatcher:     dispatcher,
		sweeper:        sessionSweeper,
		transport:      transport,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		stopTracing:    stopTracing,
	}
}

func newUserLimiter() *ratelimit.UserLimiter {
	policies := map[string]ratelimit.ActionPolicy{
		"message":     {Per: time.Second, Burst: 5},
		"order_start": {Per: time.Minute, Burst: 3},
	}
	for action := range policies {
		key := "bot.limits." + action
		if viper.IsSet(key + ".per") {
			policies[action] = ratelimit.ActionPolicy{
				Per:   viper.GetDuration(key + ".per"),
				Burst: viper.GetInt(key + ".burst"),
			}
		}
	}

	return ratelimit.NewUserLimiter(policies)
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := a.dispatcher.Run(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("Dispatch worker error", "error", err)
		}
	}()

	go func() {
		if err := a.sweeper.Run(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("Session sweeper error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("AMQP connection close error", "error", err)
	} else {
		slog.Info("AMQP connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.stopTracing(ctx); err != nil {
		slog.Error("Tracing shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
