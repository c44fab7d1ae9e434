// Package workerproc turns queue payloads into job runs. The SQS poll loop
// lives in cmd/worker; everything here is transport-free.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"curiosity-sync/internal/etl"
	"curiosity-sync/internal/jobs"
	"curiosity-sync/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrUnknownJob indicates a message naming no registered job.
type ErrUnknownJob struct {
	Meta      MessageMeta
	Job       string
	RequestID string
}

func (e ErrUnknownJob) Error() string {
	if e.Job == "" {
		return "missing job name"
	}
	return "unknown job " + e.Job
}

// ErrProcess indicates the job ran and failed.
type ErrProcess struct {
	Job       string
	RequestID string
	Result    etl.Result
}

func (e ErrProcess) Error() string {
	if e.Result.Error == "" {
		return "run " + e.Job + " failed"
	}
	return "run " + e.Job + ": " + e.Result.Error
}

// Unrecoverable reports whether redelivering the message cannot help.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrUnknownJob:
		return true
	}
	return false
}

// Runner runs one job. *etl.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, job etl.Job) etl.Result
}

// Processor resolves messages against a job registry and runs them.
type Processor struct {
	Runner Runner
	Jobs   *jobs.Registry
}

// ParseMessage validates and decodes the queue payload. Job names are checked
// against registry when it is non-nil.
func ParseMessage(body string, registry *jobs.Registry) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	msg.Job = strings.TrimSpace(msg.Job)
	if msg.Job == "" {
		return msg, meta, ErrUnknownJob{Meta: meta, RequestID: msg.RequestID}
	}
	if registry != nil {
		if _, ok := registry.Lookup(msg.Job); !ok {
			return msg, meta, ErrUnknownJob{Meta: meta, Job: msg.Job, RequestID: msg.RequestID}
		}
	}
	return msg, meta, nil
}

// Handle runs the job named by a parsed message.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) (etl.Result, error) {
	if p == nil || p.Runner == nil || p.Jobs == nil {
		return etl.Result{}, errors.New("job runner not configured")
	}
	job, ok := p.Jobs.Lookup(msg.Job)
	if !ok {
		return etl.Result{}, ErrUnknownJob{Job: msg.Job, RequestID: msg.RequestID}
	}
	res := p.Runner.Run(ctx, job)
	if !res.OK {
		return res, ErrProcess{Job: msg.Job, RequestID: msg.RequestID, Result: res}
	}
	return res, nil
}

// Outcome is what HandleMessage learned about one payload, filled as far as
// processing got.
type Outcome struct {
	Message queue.Message
	Meta    MessageMeta
	Result  etl.Result
}

// HandleMessage parses body and runs the job it names.
func (p *Processor) HandleMessage(ctx context.Context, body string) (Outcome, error) {
	var registry *jobs.Registry
	if p != nil {
		registry = p.Jobs
	}
	msg, meta, err := ParseMessage(body, registry)
	out := Outcome{Message: msg, Meta: meta}
	if err != nil {
		return out, err
	}
	out.Result, err = p.Handle(ctx, msg)
	return out, err
}
