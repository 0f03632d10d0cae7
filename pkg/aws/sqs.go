package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client the consumer needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// MessageHandler processes one message body. Returning an error leaves the
// message on the queue; it becomes visible again after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// SQSConsumer long-polls one queue and deletes messages its handler accepts.
type SQSConsumer struct {
	api      SQSAPI
	queueURL string
	logger   *zap.Logger
	// errorBackoff is the pause after a failed receive.
	errorBackoff time.Duration
}

func NewSQSConsumer(cfg aws.Config, queueURL string, logger *zap.Logger) *SQSConsumer {
	return NewSQSConsumerWithAPI(sqs.NewFromConfig(cfg), queueURL, logger)
}

func NewSQSConsumerWithAPI(api SQSAPI, queueURL string, logger *zap.Logger) *SQSConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSConsumer{
		api:          api,
		queueURL:     queueURL,
		logger:       logger.With(zap.String("queue_url", queueURL)),
		errorBackoff: 2 * time.Second,
	}
}

// StartPolling runs until ctx is canceled and then returns ctx.Err().
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting SQS polling")
	for {
		if ctx.Err() != nil {
			c.logger.Info("SQS polling stopped")
			return ctx.Err()
		}
		if _, err := c.PollOnce(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("Error polling SQS", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.errorBackoff):
			}
		}
	}
}

// PollOnce receives one batch and returns how many messages were deleted.
func (c *SQSConsumer) PollOnce(ctx context.Context, handler MessageHandler) (int, error) {
	out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return 0, fmt.Errorf("receive messages: %w", err)
	}

	deleted := 0
	for _, msg := range out.Messages {
		id := aws.ToString(msg.MessageId)
		if msg.Body == nil {
			continue
		}
		if err := handler(ctx, *msg.Body); err != nil {
			c.logger.Warn("Message left for redelivery", zap.String("message_id", id), zap.Error(err))
			continue
		}
		if _, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Warn("Failed to delete message", zap.String("message_id", id), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (c *SQSConsumer) SendMessage(ctx context.Context, body string) error {
	if _, err := c.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(body),
	}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
