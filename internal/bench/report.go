package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Report collects results from one harness run.
type Report struct {
	// RunID identifies the run in CSV rows and logs.
	RunID string
	// Timestamp is when the report was created.
	Timestamp time.Time
	GoVersion string
	OS        string
	Arch      string
	Results   []Result
	// Targets holds latency ceilings per workload.
	Targets map[Workload]Target
}

// Target is a latency ceiling for a workload.
type Target struct {
	Description string
	MaxNsPerOp  float64
}

// TargetCheck is the outcome of comparing one result with its target.
type TargetCheck struct {
	Engine   string
	Workload Workload
	Target   Target
	Actual   float64
	Passed   bool
}

// NewReport creates an empty report stamped with a fresh run id and the
// current platform.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Targets:   defaultTargets(),
	}
}

func defaultTargets() map[Workload]Target {
	return map[Workload]Target{
		OLTP: {
			Description: "Read-heavy point operations",
			MaxNsPerOp:  50000,
		},
		OLAP: {
			Description: "Write-heavy point operations",
			MaxNsPerOp:  200000,
		},
		Reporting: {
			Description: "100-key range scans",
			MaxNsPerOp:  1000000,
		},
	}
}

// Add appends results to the report.
func (r *Report) Add(results ...Result) {
	r.Results = append(r.Results, results...)
}

// CheckTargets compares each result with the target of its workload.
func (r *Report) CheckTargets() []TargetCheck {
	var checks []TargetCheck
	for _, res := range r.Results {
		target, ok := r.Targets[res.Workload]
		if !ok {
			continue
		}
		checks = append(checks, TargetCheck{
			Engine:   res.Engine,
			Workload: res.Workload,
			Target:   target,
			Actual:   res.NsPerOp(),
			Passed:   res.NsPerOp() <= target.MaxNsPerOp,
		})
	}
	return checks
}

// sorted returns the results ordered by workload, then engine.
func (r *Report) sorted() []Result {
	order := make(map[Workload]int)
	for i, w := range Workloads() {
		order[w] = i
	}
	results := slices.Clone(r.Results)
	slices.SortStableFunc(results, func(a, b Result) int {
		if a.Workload != b.Workload {
			return order[a.Workload] - order[b.Workload]
		}
		return strings.Compare(a.Engine, b.Engine)
	})
	return results
}

// GenerateTextReport writes a plain-text table of the results.
func (r *Report) GenerateTextReport(w io.Writer) error {
	fmt.Fprintf(w, "=== obaidx Benchmark Report ===\n\n")
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Generated: %s\n", r.Timestamp.Format(time.RFC3339))
	if r.GoVersion != "" {
		fmt.Fprintf(w, "Go Version: %s\n", r.GoVersion)
	}
	if r.OS != "" && r.Arch != "" {
		fmt.Fprintf(w, "Platform: %s/%s\n", r.OS, r.Arch)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-10s %-8s %12s %12s %12s %12s\n",
		"Workload", "Engine", "Ops", "Latency", "Throughput", "Scanned")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 71))
	for _, res := range r.sorted() {
		fmt.Fprintf(w, "%-10s %-8s %12s %12s %12s %12s\n",
			res.Workload,
			res.Engine,
			humanize.Comma(int64(res.Ops)),
			formatDuration(res.NsPerOp()),
			formatOpsPerSec(res.OpsPerSec()),
			humanize.Comma(int64(res.Scanned)))
	}
	fmt.Fprintln(w)

	checks := r.CheckTargets()
	if len(checks) == 0 {
		return nil
	}

	fmt.Fprintln(w, "=== Latency Targets ===")
	fmt.Fprintln(w)
	allPassed := true
	for _, check := range checks {
		status := "PASS"
		if !check.Passed {
			status = "FAIL"
			allPassed = false
		}
		fmt.Fprintf(w, "%-10s %-8s %12s < %-12s %s\n",
			check.Workload,
			check.Engine,
			formatDuration(check.Actual),
			formatDuration(check.Target.MaxNsPerOp),
			status)
	}
	fmt.Fprintln(w)
	if allPassed {
		fmt.Fprintln(w, "All latency targets met.")
	} else {
		fmt.Fprintln(w, "WARNING: Some latency targets not met!")
	}
	return nil
}

// GenerateMarkdownReport writes the results as a Markdown table.
func (r *Report) GenerateMarkdownReport(w io.Writer) error {
	fmt.Fprintln(w, "# obaidx Benchmark Report")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run `%s`, generated %s\n\n", r.RunID, r.Timestamp.Format(time.RFC3339))

	fmt.Fprintln(w, "| Workload | Engine | Ops | ns/op | ops/s | Scanned |")
	fmt.Fprintln(w, "|----------|--------|-----|-------|-------|---------|")
	for _, res := range r.sorted() {
		fmt.Fprintf(w, "| %s | %s | %d | %.2f | %.0f | %d |\n",
			res.Workload,
			res.Engine,
			res.Ops,
			res.NsPerOp(),
			res.OpsPerSec(),
			res.Scanned)
	}
	fmt.Fprintln(w)
	return nil
}

// csvHeader is the column layout written by WriteCSV.
var csvHeader = []string{"run", "engine", "workload", "ops", "ns_per_op", "reads", "hits", "writes", "scans", "scanned"}

// WriteCSV writes one header row and one row per result.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for _, res := range r.sorted() {
		row := []string{
			r.RunID,
			res.Engine,
			string(res.Workload),
			strconv.Itoa(res.Ops),
			strconv.FormatFloat(res.NsPerOp(), 'f', 2, 64),
			strconv.Itoa(res.Reads),
			strconv.Itoa(res.Hits),
			strconv.Itoa(res.Writes),
			strconv.Itoa(res.Scans),
			strconv.Itoa(res.Scanned),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "failed to write csv row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveReport writes the report to filename in the given format.
func (r *Report) SaveReport(filename string, format string) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create report file")
	}
	defer func() {
		err = errors.CombineErrors(err, f.Close())
	}()

	switch format {
	case "text", "txt":
		return r.GenerateTextReport(f)
	case "markdown", "md":
		return r.GenerateMarkdownReport(f)
	case "csv":
		return r.WriteCSV(f)
	default:
		return errors.Newf("unknown report format: %s", format)
	}
}

// Summary returns a short summary of the results.
func (r *Report) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Total runs: %d\n", len(r.Results))

	ops := 0
	var elapsed time.Duration
	for _, res := range r.Results {
		ops += res.Ops
		elapsed += res.Duration
	}
	fmt.Fprintf(&sb, "Total operations: %s in %s\n", humanize.Comma(int64(ops)), elapsed.Round(time.Millisecond))

	checks := r.CheckTargets()
	passed := 0
	for _, check := range checks {
		if check.Passed {
			passed++
		}
	}
	fmt.Fprintf(&sb, "Latency targets: %d/%d passed\n", passed, len(checks))

	return sb.String()
}

func formatDuration(ns float64) string {
	if ns < 1000 {
		return fmt.Sprintf("%.2f ns", ns)
	} else if ns < 1000000 {
		return fmt.Sprintf("%.2f us", ns/1000)
	} else if ns < 1000000000 {
		return fmt.Sprintf("%.2f ms", ns/1000000)
	}
	return fmt.Sprintf("%.2f s", ns/1000000000)
}

func formatOpsPerSec(ops float64) string {
	if ops >= 1000000 {
		return fmt.Sprintf("%.2fM/s", ops/1000000)
	} else if ops >= 1000 {
		return fmt.Sprintf("%.2fK/s", ops/1000)
	}
	return fmt.Sprintf("%.2f/s", ops)
}
