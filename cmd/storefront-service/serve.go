package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/yashrajoria/storefront-service/apperrors"
	"github.com/yashrajoria/storefront-service/audit"
	"github.com/yashrajoria/storefront-service/cart"
	"github.com/yashrajoria/storefront-service/config"
	"github.com/yashrajoria/storefront-service/consumer"
	"github.com/yashrajoria/storefront-service/controllers"
	"github.com/yashrajoria/storefront-service/database"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/metrics"
	"github.com/yashrajoria/storefront-service/middleware"
	awspkg "github.com/yashrajoria/storefront-service/pkg/aws"
	"github.com/yashrajoria/storefront-service/processor"
	"github.com/yashrajoria/storefront-service/repository"
	"github.com/yashrajoria/storefront-service/routes"
	"github.com/yashrajoria/storefront-service/services"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the payment callback consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()
			return serve(cmd.Context(), rt)
		},
	}
}

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, log := rt.cfg, rt.logger
	var cleanup closers
	defer func() { cleanup.run() }()

	db, err := database.ConnectPostgres(cfg.Postgres, log)
	if err != nil {
		return err
	}
	cleanup.add(func() { _ = database.Close(db) })
	if err := database.Migrate(db); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cloudMetrics := awspkg.NewMetricsClient(rt.aws, "Storefront", cfg.CloudWatchEnabled)
	m := metrics.New(reg, cfg.ServiceName, cloudMetrics)

	publisher := buildPublisher(rt, &cleanup)
	recorder, err := buildRecorder(ctx, rt, &cleanup)
	if err != nil {
		return err
	}
	storage, err := buildCartStorage(ctx, rt, &cleanup)
	if err != nil {
		return err
	}

	orders := repository.NewGormOrderRepository(db)
	products := repository.NewGormProductRepository(db)

	var (
		proc     processor.Processor
		webhooks controllers.WebhookParser
	)
	switch cfg.PaymentProcessor {
	case config.ProcessorStripe:
		stripeProc := processor.NewStripe(cfg.StripeAPIKey, cfg.StripeWebhookSecret, cfg.StripePublishableKey)
		proc, webhooks = stripeProc, stripeProc
	default:
		proc = processor.NewRazorpay(cfg.RazorpayAPIURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.UpstreamTimeout)
	}

	verifier := services.NewPaymentVerifier(orders, cfg.SigningSecret(), publisher, m, recorder, log)
	checkoutSvc := services.NewCheckoutService(products, orders, proc, cfg.Currency, cfg.UpstreamTimeout, m, log)
	orderSvc := services.NewOrderService(orders, publisher, m, log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := middleware.NewRateLimiter(rate.Limit(20), 40, 5*time.Minute)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		m.Middleware(),
		middleware.MetricsMiddleware(cloudMetrics, cfg.ServiceName),
		middleware.RateLimitMiddleware(limiter),
		middleware.Timeout(cfg.UpstreamTimeout+5*time.Second),
		apperrors.ErrorMiddleware(),
	)
	routes.RegisterRoutes(r, routes.Handlers{
		Checkout:  controllers.NewCheckoutController(checkoutSvc),
		Payment:   controllers.NewPaymentController(verifier, webhooks, log),
		Orders:    controllers.NewOrderController(orderSvc),
		Cart:      controllers.NewCartController(storage, log),
		Metrics:   m,
		JWTSecret: cfg.JWTSecret,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		limiter.Cleanup(ctx)
	}()

	if cfg.PaymentCallbackQueueURL != "" {
		queue := awspkg.NewSQSConsumer(rt.aws, cfg.PaymentCallbackQueueURL, log)
		callbacks := consumer.NewCallbackConsumer(queue, verifier, m, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			callbacks.Start(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Storefront service is running",
			zap.String("port", cfg.Port),
			zap.String("processor", proc.Name()),
			zap.String("cart_backend", cfg.CartBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
	wg.Wait()
	log.Info("Server shutdown complete")
	return nil
}

func buildPublisher(rt *runtime, cleanup *closers) events.Publisher {
	var multi events.Multi
	if len(rt.cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(rt.cfg.KafkaBrokers, rt.cfg.PaymentEventsTopic, rt.logger)
		cleanup.add(func() { _ = kp.Close() })
		multi = append(multi, kp)
	}
	if rt.cfg.PaymentSNSTopicARN != "" {
		multi = append(multi, events.NewSNSPublisher(awspkg.NewSNSClient(rt.aws), rt.cfg.PaymentSNSTopicARN))
	}
	if len(multi) == 0 {
		rt.logger.Warn("No payment event sink configured; transitions will not be published")
	}
	return multi
}

func buildRecorder(ctx context.Context, rt *runtime, cleanup *closers) (audit.Recorder, error) {
	if rt.cfg.MongoURI == "" {
		return audit.Nop{}, nil
	}
	client, db, err := database.ConnectMongo(ctx, rt.cfg.MongoURI, rt.cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	cleanup.add(func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	})
	coll := db.Collection("payment_verifications")
	if err := audit.EnsureIndexes(ctx, coll); err != nil {
		return nil, err
	}
	return audit.NewMongoRecorder(coll), nil
}

func buildCartStorage(ctx context.Context, rt *runtime, cleanup *closers) (cart.Storage, error) {
	switch rt.cfg.CartBackend {
	case config.CartBackendFile:
		return cart.NewFileStorage(rt.cfg.CartDir)
	case config.CartBackendDynamo:
		return cart.NewDynamoStorage(awspkg.NewDynamoDBClient(rt.aws), rt.cfg.CartDynamoTable, rt.cfg.CartTTL), nil
	default:
		client, err := database.NewRedisClient(ctx, rt.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = client.Close() })
		return cart.NewRedisStorage(client, rt.cfg.CartTTL), nil
	}
}
