package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	runsStarted      = newCounterVec()
	runsCompleted    = newCounterVec()
	runsFailed       = newCounterVec()
	documentsWritten = newCounterVec()
	recordsSkipped   = newCounterVec()
	writeFailures    = newCounterVec()
	triggersRejected = newCounterVec()
	queueMessages    = newCounterVec()

	runDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 300000})
)

// IncRunStarted increments the started counter for job.
func IncRunStarted(job string) { runsStarted.Add(job, 1) }

// IncRunCompleted increments the completed counter for job.
func IncRunCompleted(job string) { runsCompleted.Add(job, 1) }

// IncRunFailed increments the failed counter for job.
func IncRunFailed(job string) { runsFailed.Add(job, 1) }

// AddDocumentsWritten adds n successful merge-writes for job.
func AddDocumentsWritten(job string, n int) { documentsWritten.Add(job, uint64(max(n, 0))) }

// AddRecordsSkipped adds n skipped records for job.
func AddRecordsSkipped(job string, n int) { recordsSkipped.Add(job, uint64(max(n, 0))) }

// AddWriteFailures adds n rejected writes for job.
func AddWriteFailures(job string, n int) { writeFailures.Add(job, uint64(max(n, 0))) }

// IncTriggerRejected counts unauthorized trigger calls for job.
func IncTriggerRejected(job string) { triggersRejected.Add(job, 1) }

// IncQueueMessage counts queue messages by outcome (received, completed, failed, dropped).
func IncQueueMessage(outcome string) { queueMessages.Add(outcome, 1) }

// ObserveRunDurationMs records a run duration in milliseconds.
func ObserveRunDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounterVec(&buf, "sync_runs_started_total", "Sync runs started", "job", runsStarted)
	writeCounterVec(&buf, "sync_runs_completed_total", "Sync runs completed", "job", runsCompleted)
	writeCounterVec(&buf, "sync_runs_failed_total", "Sync runs failed", "job", runsFailed)
	writeCounterVec(&buf, "sync_documents_written_total", "Documents merge-written", "job", documentsWritten)
	writeCounterVec(&buf, "sync_records_skipped_total", "Records skipped during normalization", "job", recordsSkipped)
	writeCounterVec(&buf, "sync_write_failures_total", "Document writes rejected by the store", "job", writeFailures)
	writeCounterVec(&buf, "sync_triggers_rejected_total", "Trigger calls rejected as unauthorized", "job", triggersRejected)
	writeCounterVec(&buf, "sync_queue_messages_total", "Queue messages by outcome", "outcome", queueMessages)
	writeHistogram(&buf, "sync_run_duration_ms", "Sync run duration in milliseconds", runDuration.Snapshot())
	return buf.String()
}

// Since returns the elapsed time since start in milliseconds.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

type counterVec struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]uint64)}
}

func (c *counterVec) Add(label string, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[label] += n
}

func (c *counterVec) Get(label string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[label]
}

func (c *counterVec) snapshot() ([]string, map[string]uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	labels := make([]string, 0, len(c.values))
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		labels = append(labels, k)
		out[k] = v
	}
	sort.Strings(labels)
	return labels, out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound it does not exceed.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounterVec(buf *bytes.Buffer, name, help, labelName string, c *counterVec) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	labels, values := c.snapshot()
	for _, label := range labels {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, labelName, label, values[label])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
