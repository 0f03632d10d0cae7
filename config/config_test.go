package config_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/config"
)

type fakeSecrets struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.values[name], nil
}

func setRazorpayEnv(t *testing.T) {
	t.Setenv("PAYMENT_PROCESSOR", "razorpay")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "shh")
	t.Setenv("CART_BACKEND", "file")
	t.Setenv("AWS_USE_SECRETS", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("CURRENCY", "")
	t.Setenv("UPSTREAM_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")

	cfg, err := config.LoadConfig(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "rzp_test_key", cfg.KeyID())
	assert.Equal(t, []byte("shh"), cfg.SigningSecret().Reveal())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	_, err := config.LoadConfig(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAZORPAY_KEY_SECRET")
}

func TestLoadConfig_UnsupportedProcessor(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("PAYMENT_PROCESSOR", "paypal")

	_, err := config.LoadConfig(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoadConfig_TimeoutInSeconds(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("UPSTREAM_TIMEOUT", "3")

	cfg, err := config.LoadConfig(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
}

func TestLoadConfig_RejectsNonPositiveDurations(t *testing.T) {
	for _, tc := range []struct{ key, val string }{
		{"UPSTREAM_TIMEOUT", "0"},
		{"UPSTREAM_TIMEOUT", "0s"},
		{"UPSTREAM_TIMEOUT", "-5s"},
		{"CART_TTL", "0"},
	} {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			setRazorpayEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := config.LoadConfig(context.Background(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key+" must be positive")
		})
	}
}

func TestLoadConfig_SecretsManager(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STRIPE_API_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("AWS_USE_SECRETS", "true")
	t.Setenv("RAZORPAY_KEY_SECRET_NAME", "test/razorpay")

	src := &fakeSecrets{values: map[string]string{"test/razorpay": " from-sm \n"}}
	cfg, err := config.LoadConfig(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-sm"), cfg.SigningSecret().Reveal())
	assert.Equal(t, 4, src.calls)
}

func TestLoadConfig_SecretsManagerFailure(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("AWS_USE_SECRETS", "true")
	t.Setenv("JWT_SECRET", "")

	_, err := config.LoadConfig(context.Background(), &fakeSecrets{err: errors.New("access denied")})
	assert.Error(t, err)
}

func TestLoadConfig_AbsentSecretFallsToValidation(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("AWS_USE_SECRETS", "true")

	src := &fakeSecrets{err: fmt.Errorf("%w: storefront/razorpay-key-secret", config.ErrSecretNotFound)}
	_, err := config.LoadConfig(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables")
	assert.Contains(t, err.Error(), "RAZORPAY_KEY_SECRET")
}

func TestSecretIsRedacted(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("RAZORPAY_KEY_SECRET", "super-secret-value")

	cfg, err := config.LoadConfig(context.Background(), nil)
	require.NoError(t, err)

	for _, out := range []string{
		fmt.Sprintf("%v", cfg.RazorpayKeySecret),
		fmt.Sprintf("%s", cfg.RazorpayKeySecret),
		fmt.Sprintf("%+v", cfg),
		fmt.Sprintf("%#v", cfg.RazorpayKeySecret),
	} {
		assert.NotContains(t, out, "super-secret-value")
	}

	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "super-secret-value")
	assert.Contains(t, string(b), "[REDACTED]")
}
