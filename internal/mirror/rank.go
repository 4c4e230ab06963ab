package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// SpeedProber measures a single mirror.
type SpeedProber interface {
	Probe(ctx context.Context, baseURL string) (ProbeResult, error)
}

// Ranker probes mirrors one after another and collects the successes.
type Ranker struct {
	prober   SpeedProber
	errOut   io.Writer
	logger   *slog.Logger
	recorder Recorder
}

// NewRanker creates a Ranker. Mirrors that fail with a connection error are
// reported on errOut and left out of the results.
func NewRanker(prober SpeedProber, errOut io.Writer, logger *slog.Logger) *Ranker {
	return &Ranker{
		prober: prober,
		errOut: errOut,
		logger: logger,
	}
}

// WithRecorder attaches a Recorder that sees every outcome.
func (r *Ranker) WithRecorder(rec Recorder) *Ranker {
	r.recorder = rec
	return r
}

// Rank probes each mirror in order, waiting for one probe to finish before
// starting the next. The returned results keep the input order. A
// connection error skips the mirror; any other error, including
// cancellation of ctx, stops the run and is returned.
func (r *Ranker) Rank(ctx context.Context, mirrors []string) ([]ProbeResult, error) {
	results := make([]ProbeResult, 0, len(mirrors))
	for i, m := range mirrors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.logger.Debug("probing mirror", "mirror", m, "index", i+1, "total", len(mirrors))
		result, err := r.prober.Probe(ctx, m)
		if err != nil {
			if !IsConnectionError(err) {
				return nil, err
			}
			fmt.Fprintf(r.errOut, "ERROR: %s: %v\n", m, err)
			r.logger.Debug("mirror skipped", "mirror", m, "error", err)
			if r.recorder != nil {
				r.recorder.RecordFailure(m, err)
			}
			continue
		}

		if r.recorder != nil {
			r.recorder.RecordResult(result)
		}
		results = append(results, result)
	}

	r.logger.Info("ranking complete", "mirrors", len(mirrors), "succeeded", len(results), "failed", len(mirrors)-len(results))
	return results, nil
}

// SortByAverage returns a copy of results ordered by average rate, fastest first.
func SortByAverage(results []ProbeResult) []ProbeResult {
	return sortedBy(results, func(r ProbeResult) float64 { return r.AverageMBps })
}

// SortByPeak returns a copy of results ordered by peak rate, fastest first.
// Mirrors with the same peak are ordered by average rate.
func SortByPeak(results []ProbeResult) []ProbeResult {
	return sortedBy(SortByAverage(results), func(r ProbeResult) float64 { return r.PeakMBps })
}

func sortedBy(results []ProbeResult, key func(ProbeResult) float64) []ProbeResult {
	sorted := make([]ProbeResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	return sorted
}
