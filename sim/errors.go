package sim

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrorRecord is one non-fatal failure recorded during a run.
type ErrorRecord struct {
	Context string // map path, plugin path, or match description
	Message string
	Time    time.Time
}

// ErrorLog accumulates non-fatal failures and writes them to timestamped
// files at the end of the run. Map failures and plugin/match failures go to
// separate files, matching the two error surfaces of the harness.
type ErrorLog struct {
	mu        sync.Mutex
	mapErrors []ErrorRecord
	runErrors []ErrorRecord
}

func NewErrorLog() *ErrorLog { return &ErrorLog{} }

// RecordMapError notes a map that failed to load.
func (e *ErrorLog) RecordMapError(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mapErrors = append(e.mapErrors, ErrorRecord{Context: path, Message: err.Error(), Time: time.Now()})
}

// RecordRunError notes a plugin or match failure.
func (e *ErrorLog) RecordRunError(context string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runErrors = append(e.runErrors, ErrorRecord{Context: context, Message: err.Error(), Time: time.Now()})
}

// Flush writes any accumulated errors to input_errors_<ts>.txt and
// errors_<ts>.txt in the working directory, falling back to stderr when a
// file cannot be created.
func (e *ErrorLog) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	stamp := timestamp()
	writeErrorFile(fmt.Sprintf("input_errors_%s.txt", stamp), "MAP LOADING ERRORS", e.mapErrors)
	writeErrorFile(fmt.Sprintf("errors_%s.txt", stamp), "RUN ERRORS", e.runErrors)
	e.mapErrors = nil
	e.runErrors = nil
}

func writeErrorFile(name, title string, records []ErrorRecord) {
	if len(records) == 0 {
		return
	}
	f, err := os.Create(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "=== %s ===\n", title)
		for _, r := range records {
			fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", r.Context, r.Message, r.Time.Format(time.RFC3339))
		}
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "=== %s ===\n\n", title)
	for _, r := range records {
		fmt.Fprintf(f, "Context: %s\nTime: %s\nError: %s\n\n", r.Context, r.Time.Format(time.RFC3339), r.Message)
	}
}

func timestamp() string {
	return time.Now().Format("20060102_150405")
}
