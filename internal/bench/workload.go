package bench

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
)

// Workload is an operation mix.
type Workload string

// Workloads measured by the harness.
const (
	// OLTP is read heavy: 90% point reads, 10% writes.
	OLTP Workload = "oltp"
	// OLAP is write heavy: 10% point reads, 90% writes.
	OLAP Workload = "olap"
	// Reporting issues range scans of RangeWidth keys.
	Reporting Workload = "reporting"
)

// RangeWidth is the key span of a Reporting scan.
const RangeWidth = 100

// Workloads lists every workload in reporting order.
func Workloads() []Workload {
	return []Workload{OLTP, OLAP, Reporting}
}

// ParseWorkload parses a workload name.
func ParseWorkload(s string) (Workload, bool) {
	switch w := Workload(s); w {
	case OLTP, OLAP, Reporting:
		return w, true
	default:
		return "", false
	}
}

// readPercent returns the share of point reads out of 100.
func (w Workload) readPercent() int {
	switch w {
	case OLTP:
		return 90
	case OLAP:
		return 10
	default:
		return 0
	}
}

// Result summarizes one run of a workload against an engine.
type Result struct {
	Engine   string
	Workload Workload
	Ops      int
	Duration time.Duration

	Reads   int
	Hits    int
	Writes  int
	Scans   int
	Scanned int
}

// NsPerOp returns the mean latency per operation.
func (r Result) NsPerOp() float64 {
	if r.Ops == 0 {
		return 0
	}
	return float64(r.Duration.Nanoseconds()) / float64(r.Ops)
}

// OpsPerSec returns the throughput of the run.
func (r Result) OpsPerSec() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Duration.Seconds()
}

var benchValue = []byte("x")

// Load inserts keys 0..n-1 in ascending order and returns the elapsed time.
func Load(e Engine, n int) (time.Duration, error) {
	start := time.Now()
	for k := 0; k < n; k++ {
		if err := e.Insert(int64(k), benchValue); err != nil {
			return 0, errors.Wrapf(err, "%s: load key %d", e.Name(), k)
		}
	}
	return time.Since(start), nil
}

// Run executes ops operations of workload w against e. Keys are drawn
// uniformly from [0, ops) using seed, so two engines given the same seed
// see the same operation sequence.
func Run(e Engine, w Workload, ops int, seed int64) (Result, error) {
	if _, ok := ParseWorkload(string(w)); !ok {
		return Result{}, errors.Newf("unknown workload %q", w)
	}
	if ops <= 0 {
		return Result{}, errors.Newf("operation count must be positive, got %d", ops)
	}

	rng := rand.New(rand.NewSource(seed))
	res := Result{Engine: e.Name(), Workload: w, Ops: ops}

	start := time.Now()
	for i := 0; i < ops; i++ {
		choice := rng.Intn(100)
		key := int64(rng.Intn(ops))

		if w == Reporting {
			n, err := e.Range(key, key+RangeWidth)
			if err != nil {
				return res, errors.Wrapf(err, "%s: range at %d", e.Name(), key)
			}
			res.Scans++
			res.Scanned += n
			continue
		}

		if choice < w.readPercent() {
			_, found, err := e.Get(key)
			if err != nil {
				return res, errors.Wrapf(err, "%s: get %d", e.Name(), key)
			}
			res.Reads++
			if found {
				res.Hits++
			}
			continue
		}

		if err := e.Insert(key, benchValue); err != nil {
			return res, errors.Wrapf(err, "%s: insert %d", e.Name(), key)
		}
		res.Writes++
	}
	res.Duration = time.Since(start)
	return res, nil
}
