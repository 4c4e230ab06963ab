// Package report renders ranking results and live probe progress.
package report

import (
	"fmt"
	"io"

	"github.com/BadgerOps/bestmirror/internal/mirror"
)

// Metric selects which rate of a result is printed.
type Metric int

const (
	Average Metric = iota
	Peak
)

func (m Metric) value(r mirror.ProbeResult) float64 {
	if m == Peak {
		return r.PeakMBps
	}
	return r.AverageMBps
}

// WriteRanking prints a titled section with one baseurl line per result, in
// the order given. Each mirror URL is rewritten with RepoURL; a URL that
// cannot be rewritten aborts the section with an error.
func WriteRanking(w io.Writer, title string, results []mirror.ProbeResult, version, arch string, metric Metric) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}
	for _, r := range results {
		repoURL, err := mirror.RepoURL(r.URL, version, arch)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%6.2f Mb/s  baseurl=%s\n", metric.value(r), repoURL); err != nil {
			return err
		}
	}
	return nil
}
