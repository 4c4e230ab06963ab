package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
)

// Progress shows the rate of the mirror being probed on a single,
// continuously rewritten terminal line. When the output is not a terminal
// the samples go to the debug log instead.
type Progress struct {
	mu     sync.Mutex
	w      io.Writer
	tty    bool
	logger *slog.Logger
	drawn  bool
}

// NewProgress creates a Progress writing to f.
func NewProgress(f *os.File, logger *slog.Logger) *Progress {
	return newProgress(f, term.IsTerminal(int(f.Fd())), logger)
}

func newProgress(w io.Writer, tty bool, logger *slog.Logger) *Progress {
	return &Progress{w: w, tty: tty, logger: logger}
}

// ProbeSample implements mirror.Observer.
func (p *Progress) ProbeSample(host string, rateMBps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tty {
		p.logger.Debug("probe sample", "mirror", host, "rate_mbps", rateMBps)
		return
	}
	fmt.Fprintf(p.w, "\r%-30s  %6.2f Mb/s", host, rateMBps)
	p.drawn = true
}

// ProbeDone implements mirror.Observer.
func (p *Progress) ProbeDone(host string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty && p.drawn {
		fmt.Fprintln(p.w)
	}
	p.drawn = false
}
