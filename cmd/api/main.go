package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/velora-shop/api/internal/handlers"
	"github.com/velora-shop/api/internal/jobs"
	"github.com/velora-shop/api/internal/payments"
	"github.com/velora-shop/api/internal/platform/auth"
	"github.com/velora-shop/api/internal/platform/config"
	pfirestore "github.com/velora-shop/api/internal/platform/firestore"
	"github.com/velora-shop/api/internal/platform/observability"
	"github.com/velora-shop/api/internal/platform/requestctx"
	platformstorage "github.com/velora-shop/api/internal/platform/storage"
	firestoreRepo "github.com/velora-shop/api/internal/repositories/firestore"
	"github.com/velora-shop/api/internal/services"
)

func main() {
	ctx := context.Background()

	logger, err := observability.NewLogger("api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("configuration incomplete", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := provider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(provider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	gateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
		APIKey: cfg.PSP.StripeAPIKey,
		Logger: eventLogger(logger.Named("stripe")),
	})
	if err != nil {
		logger.Fatal("failed to initialise payment gateway", zap.Error(err))
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialise token manager", zap.Error(err))
	}
	authenticator, err := auth.NewAuthenticator(tokens, auth.WithCookieName(cfg.Auth.CookieName))
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.Error(err))
	}

	var events services.EventPublisher
	var pubsubClient *pubsub.Client
	if strings.TrimSpace(cfg.PubSub.EventsTopic) != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobs.NewPubSubEventPublisher(pubsubClient.Topic(cfg.PubSub.EventsTopic))
		if err != nil {
			logger.Fatal("failed to initialise event publisher", zap.Error(err))
		}
		events = publisher
	} else {
		logger.Warn("events topic not configured, storefront events disabled")
	}

	var uploads *handlers.UploadHandlers
	if strings.TrimSpace(cfg.Storage.ImagesBucket) != "" {
		storageClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		uploader, err := platformstorage.NewImageUploader(storageClient, cfg.Storage.ImagesBucket)
		if err != nil {
			logger.Fatal("failed to initialise image uploader", zap.Error(err))
		}
		uploads = handlers.NewUploadHandlers(uploader)
	} else {
		logger.Warn("images bucket not configured, uploads disabled")
	}

	clientURL := strings.TrimRight(cfg.Client.BaseURL, "/")
	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:     registry.Orders(),
		Gateway:    gateway,
		SuccessURL: clientURL + "/checkout-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  clientURL + "/cart",
		Logger:     eventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: registry.Orders(),
		Events: events,
		Logger: eventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	productService, err := services.NewProductService(services.ProductServiceDeps{
		Products: registry.Products(),
		Reviews:  registry.Reviews(),
		Logger:   eventLogger(logger.Named("products")),
	})
	if err != nil {
		logger.Fatal("failed to initialise product service", zap.Error(err))
	}
	reviewService, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews:  registry.Reviews(),
		Products: registry.Products(),
		Events:   events,
		Logger:   eventLogger(logger.Named("reviews")),
	})
	if err != nil {
		logger.Fatal("failed to initialise review service", zap.Error(err))
	}
	userService, err := services.NewUserService(services.UserServiceDeps{
		Users:  registry.Users(),
		Logger: eventLogger(logger.Named("users")),
	})
	if err != nil {
		logger.Fatal("failed to initialise user service", zap.Error(err))
	}
	statsService, err := services.NewStatsService(services.StatsServiceDeps{
		Orders:   registry.Orders(),
		Products: registry.Products(),
		Reviews:  registry.Reviews(),
		Users:    registry.Users(),
		Logger:   eventLogger(logger.Named("stats")),
	})
	if err != nil {
		logger.Fatal("failed to initialise stats service", zap.Error(err))
	}

	health := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := firestoreClient.Collections(ctx).Next()
			if err != nil && !errors.Is(err, iterator.Done) {
				return err
			}
			return nil
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithAuthenticator(authenticator),
		handlers.WithOrderHandlers(handlers.NewOrderHandlers(authenticator, checkoutService, orderService)),
		handlers.WithAuthHandlers(handlers.NewAuthHandlers(handlers.AuthHandlersDeps{
			Authenticator: authenticator,
			Users:         userService,
			Tokens:        tokens,
			CookieName:    cfg.Auth.CookieName,
			CookieSecure:  cfg.Auth.CookieHTTPS,
		})),
		handlers.WithProductHandlers(handlers.NewProductHandlers(authenticator, productService)),
		handlers.WithReviewHandlers(handlers.NewReviewHandlers(authenticator, reviewService)),
		handlers.WithStatsHandlers(handlers.NewStatsHandlers(authenticator, statsService)),
		handlers.WithUploadHandlers(uploads),
	)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if pubsubClient != nil && strings.TrimSpace(cfg.PubSub.EventsSubscription) != "" {
		projector, err := jobs.NewRatingProjector(jobs.RatingProjectorDeps{
			Subscription: pubsubClient.Subscription(cfg.PubSub.EventsSubscription),
			Reviews:      registry.Reviews(),
			Products:     registry.Products(),
			Logger:       eventLogger(logger.Named("jobs")),
		})
		if err != nil {
			logger.Fatal("failed to initialise rating projector", zap.Error(err))
		}
		go func() {
			if err := projector.Run(runCtx); err != nil {
				logger.Error("rating projector stopped", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	case <-runCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// eventLogger adapts a zap logger to the callback shape the services accept,
// preferring the request-scoped logger when the context carries one.
func eventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		target := observability.FromContext(ctx)
		if target == requestctx.NoopLogger() {
			target = logger
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		target.Info(event, zapFields...)
	}
}
