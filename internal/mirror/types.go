package mirror

import "time"

// ProbeResult holds the outcome of one completed mirror probe.
type ProbeResult struct {
	URL         string        `json:"url"`
	AverageMBps float64       `json:"average_mbps"`
	PeakMBps    float64       `json:"peak_mbps"`
	Bytes       int64         `json:"bytes"`
	Elapsed     time.Duration `json:"elapsed"`
	Truncated   bool          `json:"truncated"`
}

// Observer receives live progress from a running probe. ProbeSample is
// called roughly once per second with the rate of the window that just
// closed; ProbeDone is called once after the last sample.
type Observer interface {
	ProbeSample(mirror string, rateMBps float64)
	ProbeDone(mirror string)
}

// NopObserver discards all progress.
type NopObserver struct{}

func (NopObserver) ProbeSample(string, float64) {}
func (NopObserver) ProbeDone(string)            {}

// Recorder is notified of every probe outcome during a ranking run.
type Recorder interface {
	RecordResult(result ProbeResult)
	RecordFailure(mirror string, err error)
}
