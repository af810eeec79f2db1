package benchmark

import (
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyHistogram records operation latencies and reports percentiles via
// an HDR histogram rather than a sort-and-index over raw samples, so
// memory use stays bounded (a fixed bucket count) instead of growing with
// sample count. Latencies are recorded in nanoseconds; microsecond-scale
// ops are the fastest this engine does, so 1ns..10min covers every
// realistic sample with 3 significant digits of precision.
type LatencyHistogram struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

type LatencyStats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	P999 time.Duration
}

const (
	histMinNanos  = 1
	histMaxNanos  = int64(10 * time.Minute)
	histSigDigits = 3
)

func NewLatencyHistogram() *LatencyHistogram {
	return &LatencyHistogram{
		hist: hdrhistogram.New(histMinNanos, histMaxNanos, histSigDigits),
	}
}

func (h *LatencyHistogram) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// RecordValue only fails when the value is out of the configured
	// range; clamp rather than drop the sample so a single slow outlier
	// can't silently vanish from the percentiles.
	if err := h.hist.RecordValue(int64(d)); err != nil {
		h.hist.RecordValue(histMaxNanos)
	}
}

func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hist.TotalCount() == 0 {
		return LatencyStats{}
	}

	return LatencyStats{
		Min:  time.Duration(h.hist.Min()),
		Max:  time.Duration(h.hist.Max()),
		Mean: time.Duration(int64(h.hist.Mean())),
		P50:  time.Duration(h.hist.ValueAtQuantile(50)),
		P95:  time.Duration(h.hist.ValueAtQuantile(95)),
		P99:  time.Duration(h.hist.ValueAtQuantile(99)),
		P999: time.Duration(h.hist.ValueAtQuantile(99.9)),
	}
}
