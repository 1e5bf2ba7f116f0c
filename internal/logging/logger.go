// Package logging sets up dbnn's operational logger and the JSONL trace of
// unit decisions.
//
// Three levels exist. Info is the default and logs nothing per pass. Debug
// logs one record per layer and enables the decision trace. Trace adds one
// record per unit integration carrying the solver's step counts.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below slog.LevelDebug and carries per-unit solver
// statistics.
const LevelTrace = slog.LevelDebug - 4

// DecisionsFile is the name of the JSONL trace inside the decision log directory.
const DecisionsFile = "decisions.jsonl"

var levels = map[string]slog.Level{
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
	"trace": LevelTrace,
}

func lookupLevel(s string) (slog.Level, bool) {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]
	return lvl, ok
}

// ParseLevel maps "info", "debug" or "trace" (any case) to a slog.Level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	if lvl, ok := lookupLevel(s); ok {
		return lvl
	}
	return slog.LevelInfo
}

// ValidLevel reports whether s names a level ParseLevel understands.
func ValidLevel(s string) bool {
	_, ok := lookupLevel(s)
	return ok
}

// NewLogger returns a text logger on w that drops records below level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: labelTrace,
	}))
}

// labelTrace prints LevelTrace as TRACE instead of slog's "DEBUG-4".
func labelTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		return slog.String(slog.LevelKey, "TRACE")
	}
	return a
}

// Discard returns a logger that drops every record. Library packages fall
// back to it when the caller injects no logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// UnitDecision is one perceptron evaluation inside a network pass.
type UnitDecision struct {
	Layer     int        `json:"layer"`
	Unit      int        `json:"unit"`
	Carrier   [2]float64 `json:"carrier"`
	FinalZ1   float64    `json:"final_z1"`
	Threshold float64    `json:"threshold"`
	Output    int        `json:"output"`
	Time      string     `json:"time"`
}

// DecisionLogger appends one JSON line per unit evaluation. It is safe for
// concurrent use, and a nil *DecisionLogger discards everything.
type DecisionLogger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// NewDecisionLogger opens dir/decisions.jsonl for append when level is debug
// or trace. It returns nil at info level or when the file cannot be opened.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, DecisionsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &DecisionLogger{file: f, now: time.Now}
}

// LogUnit appends d, stamping Time when it is empty.
func (dl *DecisionLogger) LogUnit(d UnitDecision) {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file == nil {
		return
	}
	if d.Time == "" {
		d.Time = dl.now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(d)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = dl.file.Write(data)
}

// Close releases the trace file. Later LogUnit calls are dropped.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	f := dl.file
	dl.file = nil
	dl.mu.Unlock()

	if f != nil {
		_ = f.Close()
	}
}
