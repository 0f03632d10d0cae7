package aws_test

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	awspkg "github.com/yashrajoria/storefront-service/pkg/aws"
)

type fakeQueue struct {
	messages   []sqstypes.Message
	receiveErr error
	deleted    []string
	sent       []string
}

func (f *fakeQueue) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeQueue) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, sdkaws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeQueue) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, sdkaws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func msg(id, body string) sqstypes.Message {
	return sqstypes.Message{MessageId: sdkaws.String(id), ReceiptHandle: sdkaws.String("rh-" + id), Body: sdkaws.String(body)}
}

func TestSQSConsumer_DeletesOnlyHandledMessages(t *testing.T) {
	q := &fakeQueue{messages: []sqstypes.Message{msg("1", "ok"), msg("2", "retry"), {MessageId: sdkaws.String("3")}}}
	c := awspkg.NewSQSConsumerWithAPI(q, "https://sqs.local/callbacks", nil)

	n, err := c.PollOnce(context.Background(), func(_ context.Context, body string) error {
		if body == "retry" {
			return errors.New("db down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"rh-1"}, q.deleted)
}

func TestSQSConsumer_ReceiveError(t *testing.T) {
	q := &fakeQueue{receiveErr: errors.New("access denied")}
	c := awspkg.NewSQSConsumerWithAPI(q, "https://sqs.local/callbacks", nil)

	_, err := c.PollOnce(context.Background(), func(context.Context, string) error { return nil })
	assert.ErrorContains(t, err, "access denied")
}

func TestSQSConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := awspkg.NewSQSConsumerWithAPI(&fakeQueue{}, "https://sqs.local/callbacks", nil)

	err := c.StartPolling(ctx, func(context.Context, string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQSConsumer_SendMessage(t *testing.T) {
	q := &fakeQueue{}
	c := awspkg.NewSQSConsumerWithAPI(q, "https://sqs.local/callbacks", nil)

	require.NoError(t, c.SendMessage(context.Background(), `{"storeId":"store_a"}`))
	assert.Equal(t, []string{`{"storeId":"store_a"}`}, q.sent)
}
