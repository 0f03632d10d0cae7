package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricCheckoutSessions = "CheckoutSessionsOpened"
	MetricPaymentConfirmed = "PaymentConfirmed"
	MetricPaymentRejected  = "PaymentRejected"
	MetricOrdersCanceled   = "OrdersCanceled"
	MetricCallbacksHandled = "PaymentCallbacksHandled"
)

// CloudWatchAPI is the subset of the CloudWatch client the metrics client uses.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Datum is one data point; all data in a Put share the same dimensions.
type Datum struct {
	Name  string
	Value float64
	Unit  types.StandardUnit
}

func Count(name string) Datum {
	return Datum{Name: name, Value: 1, Unit: types.StandardUnitCount}
}

func Latency(name string, d time.Duration) Datum {
	return Datum{Name: name, Value: float64(d.Milliseconds()), Unit: types.StandardUnitMilliseconds}
}

// MetricsClient pushes custom metrics to CloudWatch. A nil or disabled client
// drops everything, so callers never need to check configuration.
type MetricsClient struct {
	api       CloudWatchAPI
	namespace string
	enabled   bool
}

func NewMetricsClient(cfg aws.Config, namespace string, enabled bool) *MetricsClient {
	return NewMetricsClientWithAPI(cloudwatch.NewFromConfig(cfg), namespace, enabled)
}

func NewMetricsClientWithAPI(api CloudWatchAPI, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "Storefront"
	}
	return &MetricsClient{api: api, namespace: namespace, enabled: enabled}
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

// Put sends data in a single PutMetricData call.
func (m *MetricsClient) Put(ctx context.Context, dimensions map[string]string, data ...Datum) error {
	if !m.IsEnabled() || len(data) == 0 {
		return nil
	}

	keys := make([]string, 0, len(dimensions))
	for k := range dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dims := make([]types.Dimension, 0, len(keys))
	for _, k := range keys {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(dimensions[k])})
	}

	now := time.Now()
	datums := make([]types.MetricDatum, 0, len(data))
	for _, d := range data {
		datums = append(datums, types.MetricDatum{
			MetricName: aws.String(d.Name),
			Value:      aws.Float64(d.Value),
			Unit:       d.Unit,
			Timestamp:  aws.Time(now),
			Dimensions: dims,
		})
	}

	if _, err := m.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: datums,
	}); err != nil {
		return fmt.Errorf("put %d metrics to %s: %w", len(datums), m.namespace, err)
	}
	return nil
}
