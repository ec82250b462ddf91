package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/tenderwatch/internal/config"
)

// eventLogPath returns ~/.tenderwatch/tenderwatch.events.jsonl.
func eventLogPath() string {
	return filepath.Join(config.DataDir(), "tenderwatch.events.jsonl")
}

// eventRecord mirrors otel.Event for JSON decoding.
// We decode from JSONL rather than importing otel to keep this
// subcommand usable even if the event schema evolves.
type eventRecord struct {
	Time      time.Time `json:"t"`
	Level     string    `json:"level"`
	Kind      string    `json:"kind"`
	Comp      string    `json:"comp"`
	SessionID string    `json:"session_id"`
	Notice    string    `json:"notice"`
	Document  string    `json:"doc"`
	Epoch     uint64    `json:"epoch"`
	DurMs     float64   `json:"dur_ms"`
	Count     int       `json:"count"`
	Err       string    `json:"err"`
	Msg       string    `json:"msg"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

// eventFilter selects events to print.
type eventFilter struct {
	kind   string
	level  string
	comp   string
	notice string
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.notice != "" && ev.Notice != f.notice {
		return false
	}
	return true
}

// formatEvent renders one event as a single human-readable line.
func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-6s] %-18s", ts, lvl, ev.Comp, ev.Kind)}
	if ev.Notice != "" {
		parts = append(parts, fmt.Sprintf("notice=%s#%d", ev.Notice, ev.Epoch))
	}
	if ev.Document != "" {
		parts = append(parts, "doc="+ev.Document)
	}
	if ev.Msg != "" {
		parts = append(parts, ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func newEventsCmd() *cobra.Command {
	var (
		filter  eventFilter
		tail    int
		follow  bool
		rawJSON bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the structured event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logPath := eventLogPath()
			f, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("event log not found at %s (run the TUI first): %w", logPath, err)
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			emit := func(l parsedLine) {
				if rawJSON {
					fmt.Fprintln(out, string(l.raw))
					return
				}
				fmt.Fprintln(out, formatEvent(l.ev))
			}

			for _, l := range readTailLines(f, tail, filter.match) {
				emit(l)
			}
			if !follow {
				return nil
			}
			return followEvents(cmd.Context(), f, filter.match, emit)
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&tail, "tail", 50, "number of recent lines to show")
	fl.BoolVarP(&follow, "follow", "f", false, "follow mode (like tail -f)")
	fl.StringVar(&filter.kind, "kind", "", "filter by event kind prefix (e.g. 'analysis')")
	fl.StringVar(&filter.level, "level", "", "minimum level: debug, info, warn, error")
	fl.StringVar(&filter.comp, "comp", "", "filter by component name")
	fl.StringVar(&filter.notice, "notice", "", "filter by notice id")
	fl.BoolVar(&rawJSON, "json", false, "output raw JSON lines")
	return cmd
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	if n <= 0 {
		return ring
	}
	ring = make([]parsedLine, 0, n)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// Make a copy of raw since scanner reuses the buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring
}

// followEvents polls r for appended lines until ctx is cancelled.
func followEvents(ctx context.Context, r io.Reader, match func(eventRecord) bool, emit func(parsedLine)) error {
	reader := bufio.NewReader(r)
	var pending []byte // partial line written but not yet terminated
	for {
		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return err
		}
		line := trimLine(pending)
		pending = nil
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if match(ev) {
			emit(parsedLine{ev: ev, raw: line})
		}
	}
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
