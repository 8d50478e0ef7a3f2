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

package adaptation_test

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tiedstate/usecases/adaptation"
)

func newTransform(t *testing.T) *adaptation.Transform {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return adaptation.NewTransform(logger, nil)
}

func assertIdentity(t *testing.T, tr *adaptation.Transform, class int, delta []float32) {
	t.Helper()
	d := tr.Dimension()
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, tr.A(class)[i][j], 1e-4)
		}
		assert.InDelta(t, float64(delta[i]), tr.B(class)[i], 1e-4)
	}
}

func TestUpdateRequiresCollectedStats(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	stats, _ := newStats(t, store, 1)

	_, err := newTransform(t).Update(stats)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, adaptation.ErrInvalidState)
}

func TestGlobalMllrIdentity(t *testing.T) {
	// a single observation at the first mean leaves the accumulator
	// rank deficient; the class falls back to the exact identity
	store, _ := loadStore(t, adaptationModel())
	stats, _ := newStats(t, store, 1)

	require.Nil(t, stats.Collect(&adaptation.Result{
		Tokens: []adaptation.Token{{SenoneID: 0, Feature: []float32{0, 0}}},
	}))

	transform := newTransform(t)
	report, err := transform.Update(stats)
	require.Nil(t, err)

	assert.Equal(t, adaptation.StateReady, transform.State())
	assert.Equal(t, []int{0}, report.DegenerateClasses())
	assertIdentity(t, transform, 0, []float32{0, 0})
}

func TestSingleClassShiftRecovered(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	stats, _ := newStats(t, store, 1)

	delta := []float32{0.5, -0.25}
	require.Nil(t, stats.Collect(shiftedResult(store, delta)))

	transform := newTransform(t)
	report, err := transform.Update(stats)
	require.Nil(t, err)

	assert.Empty(t, report.Singular)
	assert.Equal(t, 1, transform.K())
	assert.Equal(t, 2, transform.Dimension())
	assertIdentity(t, transform, 0, delta)
}

func TestSolveReportsSingularClasses(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	stats, classes := newStats(t, store, 1)
	require.Equal(t, 1, classes.K())

	// one observation cannot span a two-dimensional affine system
	require.Nil(t, stats.Collect(&adaptation.Result{
		Tokens: []adaptation.Token{{SenoneID: 1, Feature: []float32{2.5, 0.5}}},
	}))

	transform := newTransform(t)
	report, err := transform.Update(stats)
	require.Nil(t, err)

	require.NotEmpty(t, report.Singular)
	assert.Equal(t, 0, report.Singular[0].Class)
	assert.NotEmpty(t, report.Singular[0].Error())
	assertIdentity(t, transform, 0, []float32{0, 0})
}

func TestTransformStoreLoadRoundTrip(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	stats, _ := newStats(t, store, 1)

	delta := []float32{1.5, 2.5}
	require.Nil(t, stats.Collect(shiftedResult(store, delta)))

	solved := newTransform(t)
	_, err := solved.Update(stats)
	require.Nil(t, err)

	path := filepath.Join(t.TempDir(), "mllr_matrix")
	require.Nil(t, solved.Store(path))

	loaded := newTransform(t)
	require.Nil(t, loaded.Load(path))

	assert.Equal(t, adaptation.StateReady, loaded.State())
	assert.Equal(t, solved.K(), loaded.K())
	assert.Equal(t, solved.Dimension(), loaded.Dimension())
	for i := 0; i < solved.Dimension(); i++ {
		for j := 0; j < solved.Dimension(); j++ {
			assert.InDelta(t, solved.A(0)[i][j], loaded.A(0)[i][j], 1e-6)
		}
		assert.InDelta(t, solved.B(0)[i], loaded.B(0)[i], 1e-6)
	}
}

func TestStoreRequiresSolvedTransform(t *testing.T) {
	transform := newTransform(t)
	err := transform.Store(filepath.Join(t.TempDir(), "mllr_matrix"))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, adaptation.ErrInvalidState)
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mllr_matrix")
	writeFile(t, path, "1\n2\n1 0 0\n")

	transform := newTransform(t)
	assert.NotNil(t, transform.Load(path))
}

func TestLoadRejectsInconsistentDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mllr_matrix")
	writeFile(t, path, "2\n"+
		"1\n1 0\n"+
		"2\n1 0 0\n0 1 0\n")

	transform := newTransform(t)
	assert.NotNil(t, transform.Load(path))
}
