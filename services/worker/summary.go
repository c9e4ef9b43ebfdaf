package worker

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one source
type Status string

const (
	StatusSuccess     Status = "SUCCESS"
	StatusFailed      Status = "FAILED"
	StatusInterrupted Status = "INTERRUPTED"
	StatusSkipped     Status = "SKIPPED"
)

// Exit codes of a run
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitInterrupted = 130
)

// SourceResult is the outcome of one source
type SourceResult struct {
	Name     string
	Status   Status
	Records  int
	Failures int
	Path     string
	Err      error
}

// Summary is the outcome of a run
type Summary struct {
	RunID       uuid.UUID
	Results     []SourceResult
	Interrupted bool
	Elapsed     time.Duration
}

// Succeeded returns the number of sources that succeeded
func (s *Summary) Succeeded() int {
	return s.count(StatusSuccess)
}

// Failed returns the number of sources that failed
func (s *Summary) Failed() int {
	return s.count(StatusFailed)
}

func (s *Summary) count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// ExitCode maps the run to the process exit status. An interrupt wins over
// failures.
func (s *Summary) ExitCode() int {
	switch {
	case s.Interrupted:
		return ExitInterrupted
	case s.Failed() > 0:
		return ExitFailed
	default:
		return ExitOK
	}
}

// Print writes the human readable summary
func (s *Summary) Print(w io.Writer) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n  Execution Summary\n%s\n\n", rule, rule)

	for _, r := range s.Results {
		switch r.Status {
		case StatusSuccess:
			fmt.Fprintf(w, "  - %s: %s (%d records", r.Name, r.Status, r.Records)
			if r.Failures > 0 {
				fmt.Fprintf(w, ", %d pages failed", r.Failures)
			}
			if r.Path != "" {
				fmt.Fprintf(w, ", %s", r.Path)
			}
			fmt.Fprintln(w, ")")
		case StatusFailed:
			fmt.Fprintf(w, "  - %s: %s (%v)\n", r.Name, r.Status, r.Err)
		default:
			fmt.Fprintf(w, "  - %s: %s\n", r.Name, r.Status)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d succeeded, %d failed.", s.Succeeded(), s.Failed())
	if s.Interrupted {
		fmt.Fprint(w, " Interrupted by operator.")
	}
	fmt.Fprintln(w)
}
