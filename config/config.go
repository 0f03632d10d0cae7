package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProcessorRazorpay = "razorpay"
	ProcessorStripe   = "stripe"

	CartBackendFile   = "file"
	CartBackendRedis  = "redis"
	CartBackendDynamo = "dynamodb"
)

// ErrSecretNotFound is wrapped by a SecretSource when the named secret does
// not exist. Such secrets stay unset and are reported by validation instead.
var ErrSecretNotFound = errors.New("secret not found")

// SecretSource resolves named secrets, e.g. from AWS Secrets Manager.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

type Postgres struct {
	User     string
	Password Secret
	DB       string
	Host     string
	Port     string
	SSLMode  string
	TimeZone string
}

// DSN builds a libpq connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		p.Host, p.User, string(p.Password), p.DB, p.Port, p.SSLMode, p.TimeZone,
	)
}

type Config struct {
	Port        string
	Env         string
	ServiceName string

	Postgres Postgres

	RedisURL        string
	CartBackend     string
	CartTTL         time.Duration
	CartDir         string
	CartDynamoTable string

	PaymentProcessor     string
	RazorpayKeyID        string
	RazorpayKeySecret    Secret
	RazorpayAPIURL       string
	StripeAPIKey         Secret
	StripeWebhookSecret  Secret
	StripePublishableKey string
	Currency             string
	UpstreamTimeout      time.Duration

	KafkaBrokers            []string
	PaymentEventsTopic      string
	PaymentSNSTopicARN      string
	PaymentCallbackQueueURL string

	MongoURI string
	MongoDB  string

	JWTSecret Secret

	AWSUseSecrets     bool
	CloudWatchEnabled bool
}

// LoadConfig reads configuration from the environment (and .env when
// present). When AWS_USE_SECRETS is true, payment secrets are resolved through
// secrets instead of plain environment variables.
func LoadConfig(ctx context.Context, secrets SecretSource) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8090"),
		Env:         getEnv("ENV", "development"),
		ServiceName: getEnv("SERVICE_NAME", "storefront-service"),
		Postgres: Postgres{
			User:     os.Getenv("POSTGRES_USER"),
			Password: Secret(os.Getenv("POSTGRES_PASSWORD")),
			DB:       os.Getenv("POSTGRES_DB"),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		},
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CartBackend:             getEnv("CART_BACKEND", CartBackendRedis),
		CartDir:                 getEnv("CART_DIR", ".carts"),
		CartDynamoTable:         getEnv("CART_DYNAMO_TABLE", "storefront-carts"),
		PaymentProcessor:        strings.ToLower(getEnv("PAYMENT_PROCESSOR", ProcessorRazorpay)),
		RazorpayKeyID:           os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:       Secret(os.Getenv("RAZORPAY_KEY_SECRET")),
		RazorpayAPIURL:          getEnv("RAZORPAY_API_URL", "https://api.razorpay.com"),
		StripeAPIKey:            Secret(os.Getenv("STRIPE_API_KEY")),
		StripeWebhookSecret:     Secret(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		StripePublishableKey:    os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		Currency:                strings.ToUpper(getEnv("CURRENCY", "INR")),
		PaymentEventsTopic:      getEnv("PAYMENT_EVENTS_TOPIC", "storefront.payment-events"),
		PaymentSNSTopicARN:      os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		PaymentCallbackQueueURL: os.Getenv("PAYMENT_CALLBACK_QUEUE_URL"),
		MongoURI:                os.Getenv("MONGO_URI"),
		MongoDB:                 getEnv("MONGO_DB", "storefront"),
		JWTSecret:               Secret(strings.TrimSpace(os.Getenv("JWT_SECRET"))),
		AWSUseSecrets:           os.Getenv("AWS_USE_SECRETS") == "true",
		CloudWatchEnabled:       os.Getenv("CLOUDWATCH_ENABLED") == "true",
	}

	var err error
	if cfg.CartTTL, err = getDuration("CART_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.AWSUseSecrets {
		if err := cfg.resolveSecrets(ctx, secrets); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context, secrets SecretSource) error {
	if secrets == nil {
		return fmt.Errorf("AWS_USE_SECRETS is set but no secret source is configured")
	}
	targets := map[string]*Secret{
		getEnv("RAZORPAY_KEY_SECRET_NAME", "storefront/razorpay-key-secret"):   &c.RazorpayKeySecret,
		getEnv("STRIPE_API_KEY_NAME", "storefront/stripe-api-key"):            &c.StripeAPIKey,
		getEnv("STRIPE_WEBHOOK_SECRET_NAME", "storefront/stripe-webhook-key"): &c.StripeWebhookSecret,
		getEnv("JWT_SECRET_NAME", "storefront/jwt-secret"):                    &c.JWTSecret,
	}
	for name, dst := range targets {
		if dst.IsSet() {
			continue
		}
		val, err := secrets.GetSecret(ctx, name)
		if errors.Is(err, ErrSecretNotFound) {
			continue
		}
		if err != nil {
			// The name is safe to report; the value never reaches this path.
			return fmt.Errorf("resolve secret %s: %w", name, err)
		}
		*dst = Secret(strings.TrimSpace(val))
	}
	return nil
}

func (c *Config) validate() error {
	var missing []string
	switch c.PaymentProcessor {
	case ProcessorRazorpay:
		if c.RazorpayKeyID == "" {
			missing = append(missing, "RAZORPAY_KEY_ID")
		}
		if !c.RazorpayKeySecret.IsSet() {
			missing = append(missing, "RAZORPAY_KEY_SECRET")
		}
	case ProcessorStripe:
		if !c.StripeAPIKey.IsSet() {
			missing = append(missing, "STRIPE_API_KEY")
		}
		if !c.StripeWebhookSecret.IsSet() {
			missing = append(missing, "STRIPE_WEBHOOK_SECRET")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_PROCESSOR %q", c.PaymentProcessor)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive, got %s", c.CartTTL)
	}
	switch c.CartBackend {
	case CartBackendFile, CartBackendRedis, CartBackendDynamo:
	default:
		return fmt.Errorf("unsupported CART_BACKEND %q", c.CartBackend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SigningSecret is the HMAC key used to authenticate processor callbacks.
func (c *Config) SigningSecret() Secret {
	return c.RazorpayKeySecret
}

// KeyID is the public key handed to the storefront widget.
func (c *Config) KeyID() string {
	if c.PaymentProcessor == ProcessorStripe {
		return c.StripePublishableKey
	}
	return c.RazorpayKeyID
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: expected duration like 30s", key, raw)
	}
	return time.Duration(secs) * time.Second, nil
}
