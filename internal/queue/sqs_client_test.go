package queue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSend struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSend) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m1")}, nil
}

func TestSQSClientSendEncodesMessage(t *testing.T) {
	api := &fakeSend{}
	client := &SQSClient{client: api, queueURL: "https://sqs.example/queue"}

	if err := client.Send(context.Background(), Message{Job: "hooks", RequestID: "r1", Version: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if aws.ToString(api.input.QueueUrl) != "https://sqs.example/queue" {
		t.Fatalf("unexpected queue url %q", aws.ToString(api.input.QueueUrl))
	}
	got, err := DecodeMessage([]byte(aws.ToString(api.input.MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Job != "hooks" || got.RequestID != "r1" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestSQSClientSendWrapsError(t *testing.T) {
	client := &SQSClient{client: &fakeSend{err: errors.New("throttled")}, queueURL: "q"}
	err := client.Send(context.Background(), Message{Job: "hooks"})
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), " ", "us-east-1"); err == nil {
		t.Fatal("expected error for empty queue url")
	}
}
