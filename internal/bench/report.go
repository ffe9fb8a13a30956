package bench

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PassMark = "✓"
	FailMark = "✗"
)

// Result is the outcome of measuring one Case.
type Result struct {
	Label      string
	KernelSize int
	Threads    int
	Schedule   string
	Chunk      int
	Tile       int
	LoopOrder  int
	Runs       []RunResult
	Stats      Stats
	Speedup    float64 // relative to the sequential baseline mean
	Efficiency float64
	Imbalance  float64 // max/mean units per worker in the last run
	Match      bool    // every run was byte-identical to the baseline
	Mismatch   string  // first differing sample, when Match is false
}

// Report collects the results of one bench invocation.
type Report struct {
	RunID   string
	Image   string
	Axis    Axis
	Results []Result
}

// NewReport starts an empty report with a fresh run identifier.
func NewReport(image string, axis Axis) *Report {
	return &Report{
		RunID: uuid.NewString(),
		Image: image,
		Axis:  axis,
	}
}

// Add appends r to the report.
func (rep *Report) Add(r Result) { rep.Results = append(rep.Results, r) }

// Mismatches returns the labels of results that differ from the baseline.
func (rep *Report) Mismatches() []string {
	var out []string
	for _, r := range rep.Results {
		if !r.Match {
			out = append(out, r.Label)
		}
	}
	return out
}

// CheckTimeThreshold applies the time gate to every result.
func (rep *Report) CheckTimeThreshold(threshold time.Duration) error {
	for _, r := range rep.Results {
		if err := CheckTimeThreshold(r.Label, r.Stats.Mean, threshold); err != nil {
			return err
		}
	}
	return nil
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of the report to w.
func FormatTable(rep *Report, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "run %s  image %s\n", rep.RunID, rep.Image)
	fmt.Fprintf(sb, "%-28s  %6s  %7s  %10s  %10s  %10s  %8s  %6s  %6s  %5s\n",
		"Config", "Kernel", "Threads", "Min(ms)", "Mean(ms)", "Max(ms)", "Speedup", "Eff", "Imbal", "Match")
	fmt.Fprintln(sb, strings.Repeat("-", 108))

	for _, r := range rep.Results {
		mark := PassMark
		if !r.Match {
			mark = FailMark
		}
		fmt.Fprintf(sb, "%-28s  %6d  %7d  %10.3f  %10.3f  %10.3f  %8.2f  %6.2f  %6.2f  %5s\n",
			r.Label,
			r.KernelSize,
			r.Threads,
			ms(r.Stats.Min),
			ms(r.Stats.Mean),
			ms(r.Stats.Max),
			r.Speedup,
			r.Efficiency,
			r.Imbalance,
			mark,
		)
	}

	for _, r := range rep.Results {
		if !r.Match {
			fmt.Fprintf(sb, "%s %s: %s\n", FailMark, r.Label, r.Mismatch)
		}
	}

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	RunID   string       `json:"run_id"`
	Image   string       `json:"image"`
	Axis    string       `json:"axis,omitempty"`
	Results []jsonResult `json:"results"`
}

type jsonResult struct {
	Label      string    `json:"label"`
	KernelSize int       `json:"kernel_size"`
	Threads    int       `json:"threads"`
	Schedule   string    `json:"schedule"`
	Chunk      int       `json:"chunk"`
	Tile       int       `json:"tile"`
	LoopOrder  int       `json:"loop_order"`
	RunsMS     []float64 `json:"runs_ms"`
	MinMS      float64   `json:"min_ms"`
	MeanMS     float64   `json:"mean_ms"`
	MaxMS      float64   `json:"max_ms"`
	Speedup    float64   `json:"speedup"`
	Efficiency float64   `json:"efficiency"`
	Imbalance  float64   `json:"imbalance"`
	Match      bool      `json:"match"`
	Mismatch   string    `json:"mismatch,omitempty"`
}

// FormatJSON writes a JSON report to w.
func FormatJSON(rep *Report, w io.Writer) {
	jr := jsonReport{
		RunID:   rep.RunID,
		Image:   rep.Image,
		Axis:    string(rep.Axis),
		Results: make([]jsonResult, len(rep.Results)),
	}
	for i, r := range rep.Results {
		runs := make([]float64, len(r.Runs))
		for j, run := range r.Runs {
			runs[j] = ms(run.Duration)
		}
		jr.Results[i] = jsonResult{
			Label:      r.Label,
			KernelSize: r.KernelSize,
			Threads:    r.Threads,
			Schedule:   r.Schedule,
			Chunk:      r.Chunk,
			Tile:       r.Tile,
			LoopOrder:  r.LoopOrder,
			RunsMS:     runs,
			MinMS:      ms(r.Stats.Min),
			MeanMS:     ms(r.Stats.Mean),
			MaxMS:      ms(r.Stats.Max),
			Speedup:    r.Speedup,
			Efficiency: r.Efficiency,
			Imbalance:  r.Imbalance,
			Match:      r.Match,
			Mismatch:   r.Mismatch,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}

// CSVHeader lists the CSV columns. Time is the mean in seconds.
var CSVHeader = []string{
	"RunID", "Threads", "Scheduler", "KernelSize", "Chunk", "Tile", "LoopOrder",
	"Time", "Speedup", "Efficiency", "Match",
}

// FormatCSV writes one row per result to w.
func FormatCSV(rep *Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rep.Results {
		row := []string{
			rep.RunID,
			strconv.Itoa(r.Threads),
			r.Schedule,
			strconv.Itoa(r.KernelSize),
			strconv.Itoa(r.Chunk),
			strconv.Itoa(r.Tile),
			strconv.Itoa(r.LoopOrder),
			strconv.FormatFloat(r.Stats.Mean.Seconds(), 'f', 6, 64),
			strconv.FormatFloat(r.Speedup, 'f', 4, 64),
			strconv.FormatFloat(r.Efficiency, 'f', 4, 64),
			strconv.FormatBool(r.Match),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Write renders rep in format (table|json|csv).
func Write(rep *Report, format string, w io.Writer) error {
	switch format {
	case "table":
		FormatTable(rep, w)
	case "json":
		FormatJSON(rep, w)
	case "csv":
		return FormatCSV(rep, w)
	default:
		return fmt.Errorf("unknown report format %q (want table|json|csv)", format)
	}
	return nil
}
