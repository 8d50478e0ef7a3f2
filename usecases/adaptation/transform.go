//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package adaptation

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/weaviate/tiedstate/usecases/monitoring"
)

// singularPivot is the pivot magnitude below which a class dimension
// counts as degenerate.
const singularPivot = 1e-12

// SolveReport lists the class dimensions that fell back to the
// identity transform.
type SolveReport struct {
	Singular []SingularClassError
}

// DegenerateClasses returns the distinct classes with at least one
// singular dimension.
func (r *SolveReport) DegenerateClasses() []int {
	seen := map[int]bool{}
	var out []int
	for _, s := range r.Singular {
		if !seen[s.Class] {
			seen[s.Class] = true
			out = append(out, s.Class)
		}
	}
	return out
}

// Transform holds one affine pair (A_c, b_c) per regression class,
// estimated from accumulated statistics or seeded from an on-disk
// MLLR file.
type Transform struct {
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	k  int
	d  int
	as [][][]float32 // [k][d][d]
	bs [][]float32   // [k][d]

	state State
}

// NewTransform returns an empty transform. The metrics argument may
// be nil.
func NewTransform(logger logrus.FieldLogger,
	metrics *monitoring.PrometheusMetrics,
) *Transform {
	return &Transform{
		logger:  logger,
		metrics: metrics,
		state:   StateEmpty,
	}
}

func (t *Transform) K() int {
	return t.k
}

func (t *Transform) Dimension() int {
	return t.d
}

// A returns the rotation of one class, row-major [d][d].
func (t *Transform) A(class int) [][]float32 {
	return t.as[class]
}

// B returns the offset of one class.
func (t *Transform) B(class int) []float32 {
	return t.bs[class]
}

func (t *Transform) State() State {
	return t.state
}

func (t *Transform) markApplied() {
	t.state = StateApplied
}

// Update solves the per-class linear systems from the collected
// statistics and moves the lifecycle to READY. Class dimensions with
// singular accumulators fall back to the identity row; they are
// reported, not fatal.
func (t *Transform) Update(stats *Stats) (*SolveReport, error) {
	if stats.State() != StateCollecting {
		return nil, errors.Wrap(ErrInvalidState,
			"solve requires collected statistics")
	}

	t.k = stats.K()
	t.d = stats.Dimension()
	t.as = make([][][]float32, t.k)
	t.bs = make([][]float32, t.k)

	report := &SolveReport{}
	regLs := stats.RegLs()
	regRs := stats.RegRs()

	for c := 0; c < t.k; c++ {
		t.as[c] = make([][]float32, t.d)
		t.bs[c] = make([]float32, t.d)

		for i := 0; i < t.d; i++ {
			row, ok := solveRow(regLs[c][i], regRs[c][i])
			if !ok {
				report.Singular = append(report.Singular,
					SingularClassError{Class: c, Dimension: i})
				row = identityRow(t.d, i)
			}

			t.as[c][i] = make([]float32, t.d)
			for j := 0; j < t.d; j++ {
				t.as[c][i][j] = float32(row[j])
			}
			t.bs[c][i] = float32(row[t.d])
		}
	}

	t.state = StateReady
	degenerate := report.DegenerateClasses()
	t.metrics.TransformSolved(len(degenerate))

	t.logger.WithFields(logrus.Fields{
		"action":             "mllr_solve",
		"classes":            t.k,
		"dimension":          t.d,
		"degenerate_classes": len(degenerate),
	}).Info("mllr transform estimated")
	for _, s := range report.Singular {
		t.logger.WithFields(logrus.Fields{
			"action":    "mllr_solve",
			"class":     s.Class,
			"dimension": s.Dimension,
		}).Warn(s.Error())
	}

	return report, nil
}

// identityRow is w = e_i extended by a zero offset.
func identityRow(d, i int) []float64 {
	row := make([]float64, d+1)
	row[i] = 1
	return row
}

// solveRow solves G w = z by Gaussian elimination with partial
// pivoting. It reports false when a pivot falls below the singularity
// threshold.
func solveRow(g [][]float64, z []float64) ([]float64, bool) {
	n := len(z)

	// augmented system [G | z]
	aug := mat.NewDense(n, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, g[i][j])
		}
		aug.Set(i, n, z[i])
	}

	for col := 0; col < n; col++ {
		pivotRow := col
		pivot := math.Abs(aug.At(col, col))
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug.At(r, col)); v > pivot {
				pivot = v
				pivotRow = r
			}
		}
		if pivot < singularPivot {
			return nil, false
		}
		if pivotRow != col {
			for j := col; j <= n; j++ {
				v := aug.At(col, j)
				aug.Set(col, j, aug.At(pivotRow, j))
				aug.Set(pivotRow, j, v)
			}
		}

		for r := col + 1; r < n; r++ {
			factor := aug.At(r, col) / aug.At(col, col)
			if factor == 0 {
				continue
			}
			for j := col; j <= n; j++ {
				aug.Set(r, j, aug.At(r, j)-factor*aug.At(col, j))
			}
		}
	}

	w := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := aug.At(i, n)
		for j := i + 1; j < n; j++ {
			sum -= aug.At(i, j) * w[j]
		}
		w[i] = sum / aug.At(i, i)
	}
	return w, true
}

// Load seeds the transform from a pre-computed MLLR file instead of
// estimating it: a class count, then per class the dimension and
// d*(d+1) floats row-major, all whitespace-separated text. A loaded
// transform is READY.
func (t *Transform) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open mllr file %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)

	nextInt := func(what string) (int, error) {
		if !sc.Scan() {
			return 0, errors.Errorf("mllr file %s: missing %s", path, what)
		}
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return 0, errors.Wrapf(err, "mllr file %s: %s", path, what)
		}
		return v, nil
	}
	nextFloat := func() (float32, error) {
		if !sc.Scan() {
			return 0, errors.Errorf("mllr file %s: truncated", path)
		}
		v, err := strconv.ParseFloat(sc.Text(), 32)
		if err != nil {
			return 0, errors.Wrapf(err, "mllr file %s", path)
		}
		return float32(v), nil
	}

	k, err := nextInt("class count")
	if err != nil {
		return err
	}
	if k < 1 {
		return errors.Errorf("mllr file %s: class count %d", path, k)
	}

	as := make([][][]float32, k)
	bs := make([][]float32, k)
	d := 0
	for c := 0; c < k; c++ {
		classDim, err := nextInt("dimension")
		if err != nil {
			return err
		}
		if c == 0 {
			d = classDim
		} else if classDim != d {
			return errors.Errorf(
				"mllr file %s: class %d dimension %d differs from %d",
				path, c, classDim, d)
		}

		as[c] = make([][]float32, d)
		bs[c] = make([]float32, d)
		for i := 0; i < d; i++ {
			as[c][i] = make([]float32, d)
			for j := 0; j < d; j++ {
				if as[c][i][j], err = nextFloat(); err != nil {
					return err
				}
			}
			if bs[c][i], err = nextFloat(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "read mllr file %s", path)
	}

	t.k = k
	t.d = d
	t.as = as
	t.bs = bs
	t.state = StateReady
	return nil
}

// Store writes the transform in the same text format Load reads.
func (t *Transform) Store(path string) error {
	if t.state != StateReady && t.state != StateApplied {
		return errors.Wrap(ErrInvalidState, "store requires a solved transform")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create mllr file %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d\n", t.k)
	for c := 0; c < t.k; c++ {
		fmt.Fprintf(w, "%d\n", t.d)
		for i := 0; i < t.d; i++ {
			for j := 0; j < t.d; j++ {
				fmt.Fprintf(w, "%g ", t.as[c][i][j])
			}
			fmt.Fprintf(w, "%g\n", t.bs[c][i])
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "write mllr file %s", path)
	}
	return nil
}
