package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"curiosity-sync/internal/airtable"
	"curiosity-sync/internal/docstore"
	"curiosity-sync/internal/shared/metrics"
	"curiosity-sync/internal/shared/telemetry"
)

// Write failure policies.
const (
	WritePolicyAbort    = "abort"
	WritePolicyContinue = "continue"
)

// Fetcher lists every record in a table view.
type Fetcher interface {
	ListAll(ctx context.Context, req airtable.ListRequest) ([]airtable.Record, error)
}

// Options tunes a Runner. Zero durations disable the matching deadline.
type Options struct {
	FetchTimeout time.Duration
	WriteTimeout time.Duration
	JobTimeout   time.Duration
	WritePolicy  string
	PageSize     int
}

// Runner executes jobs against one fetcher and one store.
type Runner struct {
	fetcher Fetcher
	store   docstore.Store
	opts    Options
	now     func() time.Time
}

// NewRunner constructs a Runner.
func NewRunner(fetcher Fetcher, store docstore.Store, opts Options) *Runner {
	if opts.WritePolicy != WritePolicyContinue {
		opts.WritePolicy = WritePolicyAbort
	}
	return &Runner{
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// StoreKind reports the backing store, for health output.
func (r *Runner) StoreKind() string {
	if r == nil || r.store == nil {
		return ""
	}
	return r.store.Kind()
}

// Run performs one fetch -> normalize -> upsert pass. A fetch failure ends the
// run before any write. Under the abort policy the first rejected write ends
// the run and earlier writes stay in place.
func (r *Runner) Run(ctx context.Context, job Job) Result {
	start := time.Now()
	res := Result{Job: job.Name, RunID: uuid.NewString()}

	if r == nil || r.fetcher == nil || r.store == nil {
		return r.fail(res, start, errors.New("runner is not configured"))
	}
	if err := job.Validate(); err != nil {
		return r.fail(res, start, err)
	}

	if r.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.JobTimeout)
		defer cancel()
	}

	metrics.IncRunStarted(job.Name)
	telemetry.Info("sync.run.start", map[string]any{
		"job":    job.Name,
		"run_id": res.RunID,
		"table":  job.Table,
		"view":   job.View,
		"policy": r.opts.WritePolicy,
	})

	records, err := r.fetch(ctx, job)
	if err != nil {
		return r.fail(res, start, err)
	}

	if job.SingleRecord && len(records) == 0 {
		res.OK = true
		res.Reason = ReasonNoRecords
		return r.complete(res, start, 0)
	}

	now := r.now()
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return r.fail(res, start, fmt.Errorf("job interrupted: %w", err))
		}

		doc, err := Normalize(job, rec, now)
		if err != nil {
			var skip *SkipError
			if !errors.As(err, &skip) {
				return r.fail(res, start, err)
			}
			res.Skipped++
			logSkip(job.Name, res.RunID, skip)
			continue
		}

		if err := r.write(ctx, doc); err != nil {
			res.Failed++
			telemetry.Error("sync.record.write_failed", map[string]any{
				"job":       job.Name,
				"run_id":    res.RunID,
				"record_id": rec.ID,
				"path":      doc.Path(),
				"error":     err,
			})
			if r.opts.WritePolicy == WritePolicyAbort {
				return r.fail(res, start, err)
			}
			res.Err = errors.Join(res.Err, err)
			continue
		}
		res.Written++
		if job.SingleRecord && res.Slug == "" {
			res.Slug = doc.ID
		}
	}

	if res.Failed > 0 {
		err := res.Err
		res.Err = nil
		return r.fail(res, start, fmt.Errorf("%d of %d writes failed: %w", res.Failed, res.Failed+res.Written, err))
	}

	res.OK = true
	return r.complete(res, start, len(records))
}

func (r *Runner) fetch(ctx context.Context, job Job) ([]airtable.Record, error) {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}
	return r.fetcher.ListAll(ctx, job.ListRequest(r.opts.PageSize))
}

func (r *Runner) write(ctx context.Context, doc Document) error {
	if r.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.WriteTimeout)
		defer cancel()
	}
	err := r.store.Set(ctx, doc.Collection, doc.ID, doc.Body)
	if err == nil {
		return nil
	}
	var upsert *docstore.UpsertError
	if errors.As(err, &upsert) {
		return err
	}
	return &docstore.UpsertError{Path: doc.Path(), Err: err}
}

func (r *Runner) complete(res Result, start time.Time, fetched int) Result {
	res.Duration = time.Since(start)
	metrics.IncRunCompleted(res.Job)
	metrics.AddDocumentsWritten(res.Job, res.Written)
	metrics.AddRecordsSkipped(res.Job, res.Skipped)
	metrics.ObserveRunDurationMs(metrics.Since(start))

	fields := map[string]any{
		"job":         res.Job,
		"run_id":      res.RunID,
		"fetched":     fetched,
		"wrote":       res.Written,
		"skipped":     res.Skipped,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Slug != "" {
		fields["slug"] = res.Slug
	}
	if res.Reason != "" {
		fields["reason"] = res.Reason
	}
	telemetry.Info("sync.run.completed", fields)
	return res
}

func (r *Runner) fail(res Result, start time.Time, err error) Result {
	res.OK = false
	res.Err = err
	res.Error = err.Error()
	res.Duration = time.Since(start)

	metrics.IncRunFailed(res.Job)
	metrics.AddDocumentsWritten(res.Job, res.Written)
	metrics.AddRecordsSkipped(res.Job, res.Skipped)
	metrics.AddWriteFailures(res.Job, res.Failed)
	metrics.ObserveRunDurationMs(metrics.Since(start))

	telemetry.Error("sync.run.failed", map[string]any{
		"job":         res.Job,
		"run_id":      res.RunID,
		"wrote":       res.Written,
		"skipped":     res.Skipped,
		"failed":      res.Failed,
		"duration_ms": res.Duration.Milliseconds(),
		"error":       err,
	})
	return res
}

func logSkip(job, runID string, skip *SkipError) {
	fields := map[string]any{
		"job":       job,
		"run_id":    runID,
		"record_id": skip.RecordID,
		"reason":    skip.Reason,
	}
	if skip.Warn {
		telemetry.Warn("sync.record.skipped", fields)
		return
	}
	telemetry.Info("sync.record.skipped", fields)
}
