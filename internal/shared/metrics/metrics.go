package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadsStartedTotal   atomic.Uint64
	uploadsCompletedTotal atomic.Uint64
	uploadsFailedTotal    atomic.Uint64

	variantsGeneratedTotal atomic.Uint64
	variantsFailedTotal    atomic.Uint64

	variantJobsReceivedTotal             atomic.Uint64
	variantJobsCompletedTotal            atomic.Uint64
	variantJobsFailedTotal               atomic.Uint64
	variantJobsDeletedUnrecoverableTotal atomic.Uint64

	uploadDuration  = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000})
	variantDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 15000})
)

// IncUploadStarted increments the uploads-started counter.
func IncUploadStarted() { uploadsStartedTotal.Add(1) }

// IncUploadCompleted increments the uploads-completed counter.
func IncUploadCompleted() { uploadsCompletedTotal.Add(1) }

// IncUploadFailed increments the uploads-failed counter.
func IncUploadFailed() { uploadsFailedTotal.Add(1) }

// IncVariantGenerated increments the variants-generated counter.
func IncVariantGenerated() { variantsGeneratedTotal.Add(1) }

// IncVariantFailed increments the variants-failed counter.
func IncVariantFailed() { variantsFailedTotal.Add(1) }

// IncVariantJobsReceived increments the worker jobs-received counter.
func IncVariantJobsReceived() { variantJobsReceivedTotal.Add(1) }

// IncVariantJobsCompleted increments the worker jobs-completed counter.
func IncVariantJobsCompleted() { variantJobsCompletedTotal.Add(1) }

// IncVariantJobsFailed increments the worker jobs-failed counter.
func IncVariantJobsFailed() { variantJobsFailedTotal.Add(1) }

// IncVariantJobsDeletedUnrecoverable counts poison messages dropped from the queue.
func IncVariantJobsDeletedUnrecoverable() { variantJobsDeletedUnrecoverableTotal.Add(1) }

// ObserveUploadDurationMs records one upload duration in milliseconds.
func ObserveUploadDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	uploadDuration.Observe(value)
}

// ObserveVariantDurationMs records one variant-generation duration in milliseconds.
func ObserveVariantDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	variantDuration.Observe(value)
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
	writeCounter(&buf, "uploads_started_total", "Total uploads started", uploadsStartedTotal.Load())
	writeCounter(&buf, "uploads_completed_total", "Total uploads completed", uploadsCompletedTotal.Load())
	writeCounter(&buf, "uploads_failed_total", "Total uploads failed", uploadsFailedTotal.Load())
	writeCounter(&buf, "variants_generated_total", "Total image variants generated", variantsGeneratedTotal.Load())
	writeCounter(&buf, "variants_failed_total", "Total image variant failures", variantsFailedTotal.Load())
	writeCounter(&buf, "variant_jobs_received_total", "Total variant jobs received", variantJobsReceivedTotal.Load())
	writeCounter(&buf, "variant_jobs_completed_total", "Total variant jobs completed", variantJobsCompletedTotal.Load())
	writeCounter(&buf, "variant_jobs_failed_total", "Total variant jobs failed", variantJobsFailedTotal.Load())
	writeCounter(&buf, "variant_jobs_deleted_unrecoverable_total", "Total unrecoverable variant jobs deleted", variantJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "upload_duration_ms", "Upload duration in milliseconds", uploadDuration.Snapshot())
	writeHistogram(&buf, "variant_duration_ms", "Variant generation duration in milliseconds", variantDuration.Snapshot())
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
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'f', -1, 64), snap.counts[i])
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %g\n", name, snap.sum)
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}
