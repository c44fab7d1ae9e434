package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"curiosity-sync/internal/bootstrap"
	"curiosity-sync/internal/shared/config"
	"curiosity-sync/internal/shared/metrics"
	"curiosity-sync/internal/shared/telemetry"
	"curiosity-sync/internal/workerproc"
)

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.SQSQueueURL)
	if queueURL == "" {
		log.Fatal("SYNC_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	runCtx, cancelRuns := drainContext(ctx, cfg.ShutdownTimeout)
	defer cancelRuns()

	sem := make(chan struct{}, max(1, cfg.WorkerConcurrency))
	var wg sync.WaitGroup

	log.Printf("worker started queue=%s concurrency=%d visibility=%s store=%s", queueURL, cfg.WorkerConcurrency, cfg.SQSVisibilityTimeout, app.Store.Kind())

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(cfg.SQSVisibilityTimeout / time.Second),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncQueueMessage("received")
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(runCtx, sqsClient, queueURL, app.Processor, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", cfg.ShutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-runCtx.Done():
		log.Printf("shutdown timeout reached; in-flight jobs cancelled")
		<-waitDone
	}
}

// drainContext stays live until grace has passed after ctx is done, so runs
// picked up before shutdown can finish and delete their messages.
func drainContext(ctx context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		time.AfterFunc(grace, cancel)
	})
	return runCtx, func() {
		stop()
		cancel()
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type messageHandler interface {
	HandleMessage(ctx context.Context, body string) (workerproc.Outcome, error)
}

// handleMessage deletes the message when the job succeeds or the payload can
// never succeed, and leaves it for redelivery when the run failed.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc messageHandler, msg sqstypes.Message) {
	out, err := proc.HandleMessage(ctx, aws.ToString(msg.Body))
	job, requestID := out.Message.Job, out.Message.RequestID

	if err != nil && workerproc.Unrecoverable(err) {
		fields := baseFields(msg, job, requestID)
		fields["body_len"] = out.Meta.BodyLen
		if out.Meta.BodySHA != "" {
			fields["body_sha256"] = out.Meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.sync.invalid_message", fields)
		if deleteMessage(ctx, client, queueURL, msg, job, requestID) {
			metrics.IncQueueMessage("dropped")
		}
		return
	}
	if err != nil {
		fields := baseFields(msg, job, requestID)
		fields["error"] = err.Error()
		fields["wrote"] = out.Result.Written
		telemetry.Error("worker.sync.failed", fields)
		metrics.IncQueueMessage("failed")
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, job, requestID) {
		fields := baseFields(msg, job, requestID)
		fields["wrote"] = out.Result.Written
		fields["skipped"] = out.Result.Skipped
		fields["run_id"] = out.Result.RunID
		telemetry.Info("worker.sync.completed", fields)
		metrics.IncQueueMessage("completed")
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, job, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, job, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.sync.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, job, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.sync.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, job, requestID string) map[string]any {
	fields := map[string]any{
		"job":            job,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
