package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSQS struct {
	mock.Mock
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.SendMessageOutput), args.Error(1)
}

func (m *mockSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *mockSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

const testQueueURL = "https://sqs.eu-west-1.amazonaws.com/123/notify"

func TestSQSEnqueue(t *testing.T) {
	client := new(mockSQS)
	q := NewSQSQueue(client, testQueueURL)
	n := Completed("alice@test.com", "Bob", "Clean garage")

	client.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
		var decoded Notification
		if err := json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &decoded); err != nil {
			return false
		}
		return aws.ToString(in.QueueUrl) == testQueueURL && decoded.ID == n.ID
	})).Return(&sqs.SendMessageOutput{}, nil)

	require.NoError(t, q.Enqueue(context.Background(), n))
	client.AssertExpectations(t)
}

func TestSQSDequeueDeletesFirst(t *testing.T) {
	client := new(mockSQS)
	q := NewSQSQueue(client, testQueueURL)
	n := Failed("bob@test.com", "Clean garage", decimalFive())
	body, err := json.Marshal(n)
	require.NoError(t, err)

	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{{Body: aws.String(string(body)), ReceiptHandle: aws.String("rh-1")}},
	}, nil)
	client.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(in *sqs.DeleteMessageInput) bool {
		return aws.ToString(in.ReceiptHandle) == "rh-1"
	})).Return(&sqs.DeleteMessageOutput{}, nil)

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, KindFailed, got.Kind)
	client.AssertExpectations(t)
}

func TestSQSDequeueEmptyPoll(t *testing.T) {
	client := new(mockSQS)
	q := NewSQSQueue(client, testQueueURL)
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{}, nil)

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	client.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestSQSEnqueueError(t *testing.T) {
	client := new(mockSQS)
	q := NewSQSQueue(client, testQueueURL)
	client.On("SendMessage", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	err := q.Enqueue(context.Background(), Completed("a@test.com", "B", "t"))
	assert.ErrorIs(t, err, assert.AnError)
}
