package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/BadgerOps/bestmirror/internal/safety"
)

const (
	// DefaultTestFile is a large, always-present file in every Fedora
	// Everything tree, relative to the mirror base URL.
	DefaultTestFile = "images/boot.iso"

	DefaultTransferTimeout = 10 * time.Second
	DefaultConnectTimeout  = 5 * time.Second

	chunkSize      = 128 * 1024
	sampleInterval = time.Second
	mebibyte       = 1024 * 1024
)

// errTransferDeadline is the cancellation cause used when a download is
// cut off by the transfer timeout.
var errTransferDeadline = errors.New("transfer timeout reached")

// ProberOptions configures a Prober. Zero values select the defaults.
type ProberOptions struct {
	TestFile        string
	TransferTimeout time.Duration
	ConnectTimeout  time.Duration
	Observer        Observer
}

// Prober measures the download rate of individual mirrors.
type Prober struct {
	client   *http.Client
	logger   *slog.Logger
	testFile string
	timeout  time.Duration
	interval time.Duration
	observer Observer
}

// NewProber creates a Prober from opts.
func NewProber(opts ProberOptions, logger *slog.Logger) *Prober {
	if opts.TestFile == "" {
		opts.TestFile = DefaultTestFile
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = DefaultTransferTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &Prober{
		client:   safety.NewHTTPClient(opts.ConnectTimeout),
		logger:   logger,
		testFile: opts.TestFile,
		timeout:  opts.TransferTimeout,
		interval: sampleInterval,
		observer: opts.Observer,
	}
}

// Probe downloads the test file from the mirror at baseURL for at most the
// transfer timeout and reports the average rate over the whole transfer and
// the peak rate over any completed one-second window. Hitting the timeout
// truncates the measurement; it is not an error.
//
// Failures to reach the mirror, non-2xx responses and broken transfers are
// returned as *ConnectionError. Cancellation of ctx is returned as ctx.Err().
func (p *Prober) Probe(ctx context.Context, baseURL string) (ProbeResult, error) {
	target, err := resolveTestURL(baseURL, p.testFile)
	if err != nil {
		return ProbeResult{}, &ConnectionError{URL: baseURL, Err: err}
	}
	host := target.Host

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return ProbeResult{}, &ConnectionError{URL: target.String(), Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ProbeResult{}, ctx.Err()
		}
		return ProbeResult{}, &ConnectionError{URL: target.String(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ProbeResult{}, &ConnectionError{
			URL: target.String(),
			Err: &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status},
		}
	}

	p.logger.Debug("probe started", "mirror", baseURL, "url", target.String(), "timeout", p.timeout)

	var received atomic.Int64
	start := time.Now()
	deadline := time.AfterFunc(p.timeout, func() { cancel(errTransferDeadline) })
	defer deadline.Stop()

	samplerCtx, stopSampler := context.WithCancel(ctx)
	defer stopSampler()
	ticker := time.NewTicker(p.interval)
	s := newSampler(&received, p.interval, start, func(rate float64) {
		p.observer.ProbeSample(host, rate)
	})
	peakCh := make(chan float64, 1)
	go func() {
		peakCh <- s.run(samplerCtx, ticker.C)
	}()

	truncated, pumpErr := pump(reqCtx, resp.Body, &received)
	elapsed := time.Since(start)

	stopSampler()
	ticker.Stop()
	peak := <-peakCh
	p.observer.ProbeDone(host)

	if pumpErr != nil {
		if ctx.Err() != nil {
			return ProbeResult{}, ctx.Err()
		}
		return ProbeResult{}, &ConnectionError{URL: target.String(), Err: pumpErr}
	}

	if elapsed <= 0 {
		panic(fmt.Sprintf("mirror: non-positive elapsed time %v probing %s", elapsed, baseURL))
	}

	total := received.Load()
	result := ProbeResult{
		URL:         baseURL,
		AverageMBps: float64(total) / elapsed.Seconds() / mebibyte,
		PeakMBps:    peak,
		Bytes:       total,
		Elapsed:     elapsed,
		Truncated:   truncated,
	}

	p.logger.Debug("probe finished",
		"mirror", baseURL,
		"bytes", total,
		"elapsed", elapsed,
		"average_mbps", result.AverageMBps,
		"peak_mbps", result.PeakMBps,
		"truncated", truncated,
	)
	return result, nil
}

// pump drains body in fixed-size chunks, adding every byte read to
// received. It reports truncated=true when the transfer deadline stopped
// the read; any other read failure is returned.
func pump(ctx context.Context, body io.Reader, received *atomic.Int64) (bool, error) {
	buf := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			return stopReason(ctx, ctx.Err())
		}
		n, err := body.Read(buf)
		if n > 0 {
			received.Add(int64(n))
		}
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return stopReason(ctx, err)
		}
	}
}

func stopReason(ctx context.Context, err error) (bool, error) {
	if errors.Is(context.Cause(ctx), errTransferDeadline) {
		return true, nil
	}
	return false, err
}

// resolveTestURL resolves the relative test file path against a mirror
// base URL the way a browser resolves a relative link.
func resolveTestURL(baseURL, testFile string) (*url.URL, error) {
	base, err := safety.ValidateHTTPURL(baseURL)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(testFile)
	if err != nil {
		return nil, fmt.Errorf("invalid test file path %q: %w", testFile, err)
	}
	return base.ResolveReference(ref), nil
}
