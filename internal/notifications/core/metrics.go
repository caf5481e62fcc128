// Package core holds the delivery telemetry shared by notification senders.
package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"noteria/internal/types"
)

// Reasons attached to dropped and failed reminders.
const (
	ReasonTaskMissing = "task_missing"
	ReasonNotEligible = "not_eligible"
	ReasonSendFailed  = "send_failed"
	ReasonBlocked     = "recipient_blocked"
	ReasonNoRecipient = "no_recipient"
	ReasonStoreError  = "store_error"
)

// ReminderMetrics records reminder dispatch outcomes.
type ReminderMetrics interface {
	RecordSent(ctx context.Context, lateness time.Duration)
	RecordFailed(ctx context.Context, reason string)
	RecordDropped(ctx context.Context, reason string)
	RecordPending(ctx context.Context, n int)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchReminderMetrics publishes reminder metrics to CloudWatch.
//
// Metrics emitted:
//   - ReminderSent: Dims {Provider}
//   - ReminderLatency: Dims {Provider}, delay between the reminder instant and the send
//   - ReminderFailed: Dims {Provider, Reason}
//   - ReminderDropped: Dims {Reason}
//   - ReminderPending: no dims, registry size at each sweep
type CloudWatchReminderMetrics struct {
	client    CloudWatchClient
	namespace string
	provider  string
	logger    types.Logger
}

var _ ReminderMetrics = (*CloudWatchReminderMetrics)(nil)

// NewCloudWatchReminderMetrics creates a publisher. An empty namespace falls
// back to types.MetricNamespace.
func NewCloudWatchReminderMetrics(client CloudWatchClient, namespace, provider string, logger types.Logger) *CloudWatchReminderMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchReminderMetrics{
		client:    client,
		namespace: namespace,
		provider:  provider,
		logger:    logger,
	}
}

func (m *CloudWatchReminderMetrics) RecordSent(ctx context.Context, lateness time.Duration) {
	provider := dim(types.DimProvider, m.provider)
	m.put(ctx,
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricReminderSent),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{provider},
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricReminderLatency),
			Value:      aws.Float64(float64(max(lateness, 0).Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{provider},
		},
	)
}

func (m *CloudWatchReminderMetrics) RecordFailed(ctx context.Context, reason string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricReminderFailed),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dim(types.DimProvider, m.provider),
			dim(types.DimReason, reason),
		},
	})
}

func (m *CloudWatchReminderMetrics) RecordDropped(ctx context.Context, reason string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricReminderDropped),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimReason, reason)},
	})
}

func (m *CloudWatchReminderMetrics) RecordPending(ctx context.Context, n int) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricReminderPending),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// put logs and swallows publish failures; metrics never affect delivery.
func (m *CloudWatchReminderMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Error("failed to publish reminder metric",
			"error", err.Error(),
			"metric", aws.ToString(data[0].MetricName),
		)
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// NoopReminderMetrics discards everything. Used when metrics are disabled.
type NoopReminderMetrics struct{}

var _ ReminderMetrics = NoopReminderMetrics{}

func (NoopReminderMetrics) RecordSent(context.Context, time.Duration) {}
func (NoopReminderMetrics) RecordFailed(context.Context, string)      {}
func (NoopReminderMetrics) RecordDropped(context.Context, string)     {}
func (NoopReminderMetrics) RecordPending(context.Context, int)        {}
