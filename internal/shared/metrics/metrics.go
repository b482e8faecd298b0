package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	parseStartedTotal   atomic.Uint64
	parseCompletedTotal atomic.Uint64
	parseFailedTotal    atomic.Uint64
	parseOCRFallback    atomic.Uint64

	rankStartedTotal   atomic.Uint64
	rankCompletedTotal atomic.Uint64
	rankFailedTotal    atomic.Uint64

	agentQueriesTotal    atomic.Uint64
	agentRejectionsTotal atomic.Uint64

	jobsReceivedTotal            atomic.Uint64
	jobsDeletedUnrecoverableTotal atomic.Uint64

	parseDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	rankDuration  = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncParseStarted increments the parse started counter.
func IncParseStarted() { parseStartedTotal.Add(1) }

// IncParseCompleted increments the parse completed counter.
func IncParseCompleted() { parseCompletedTotal.Add(1) }

// IncParseFailed increments the parse failed counter.
func IncParseFailed() { parseFailedTotal.Add(1) }

// IncParseOCRFallback counts scanned documents routed through OCR.
func IncParseOCRFallback() { parseOCRFallback.Add(1) }

// IncRankStarted increments the ranking started counter.
func IncRankStarted() { rankStartedTotal.Add(1) }

// IncRankCompleted increments the ranking completed counter.
func IncRankCompleted() { rankCompletedTotal.Add(1) }

// IncRankFailed increments the ranking failed counter.
func IncRankFailed() { rankFailedTotal.Add(1) }

// IncAgentQuery increments the agent query counter.
func IncAgentQuery() { agentQueriesTotal.Add(1) }

// IncAgentRejection counts guardrail rejections.
func IncAgentRejection() { agentRejectionsTotal.Add(1) }

// IncJobsReceived counts queue messages received by the worker.
func IncJobsReceived() { jobsReceivedTotal.Add(1) }

// IncJobsDeletedUnrecoverable counts malformed queue messages dropped without retry.
func IncJobsDeletedUnrecoverable() { jobsDeletedUnrecoverableTotal.Add(1) }

// ObserveParseDurationMs records a resume parse duration in milliseconds.
func ObserveParseDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	parseDuration.Observe(value)
}

// ObserveRankDurationMs records a ranking run duration in milliseconds.
func ObserveRankDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	rankDuration.Observe(value)
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
	writeCounter(&buf, "resume_parse_started_total", "Total resume parses started", parseStartedTotal.Load())
	writeCounter(&buf, "resume_parse_completed_total", "Total resume parses completed", parseCompletedTotal.Load())
	writeCounter(&buf, "resume_parse_failed_total", "Total resume parses failed", parseFailedTotal.Load())
	writeCounter(&buf, "resume_parse_ocr_fallback_total", "Total scanned documents routed through OCR", parseOCRFallback.Load())
	writeCounter(&buf, "ranking_started_total", "Total ranking runs started", rankStartedTotal.Load())
	writeCounter(&buf, "ranking_completed_total", "Total ranking runs completed", rankCompletedTotal.Load())
	writeCounter(&buf, "ranking_failed_total", "Total ranking runs failed", rankFailedTotal.Load())
	writeCounter(&buf, "agent_queries_total", "Total guarded agent queries", agentQueriesTotal.Load())
	writeCounter(&buf, "agent_rejections_total", "Total guardrail rejections", agentRejectionsTotal.Load())
	writeCounter(&buf, "worker_jobs_received_total", "Total queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "worker_jobs_dropped_total", "Total malformed queue messages dropped", jobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "resume_parse_duration_ms", "Resume parse duration in milliseconds", parseDuration.Snapshot())
	writeHistogram(&buf, "ranking_duration_ms", "Ranking run duration in milliseconds", rankDuration.Snapshot())
	return buf.String()
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

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
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

// NowMillis returns current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
