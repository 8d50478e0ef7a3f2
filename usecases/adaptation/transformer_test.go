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
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tiedstate/adapters/repos/acousticmodel"
	"github.com/weaviate/tiedstate/adapters/repos/acousticmodel/testinghelpers"
	"github.com/weaviate/tiedstate/entities/logmath"
	"github.com/weaviate/tiedstate/usecases/adaptation"
	"github.com/weaviate/tiedstate/usecases/config"
)

func newTransformer(t *testing.T, store *acousticmodel.Store,
	transform *adaptation.Transform, classes *adaptation.RegressionClasses,
) *adaptation.Transformer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return adaptation.NewTransformer(store, transform, classes, logger)
}

func TestApplyRequiresReadyTransform(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	_, classes := newStats(t, store, 1)

	transformer := newTransformer(t, store, newTransform(t), classes)
	err := transformer.ApplyTransform()
	require.NotNil(t, err)
	assert.ErrorIs(t, err, adaptation.ErrInvalidState)
}

func TestApplyTwiceIsInvalid(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	stats, classes := newStats(t, store, 1)
	require.Nil(t, stats.Collect(shiftedResult(store, []float32{1, 1})))

	transform := newTransform(t)
	_, err := transform.Update(stats)
	require.Nil(t, err)

	transformer := newTransformer(t, store, transform, classes)
	require.Nil(t, transformer.ApplyTransform())
	assert.Equal(t, adaptation.StateApplied, transform.State())

	err = transformer.ApplyTransform()
	require.NotNil(t, err)
	assert.ErrorIs(t, err, adaptation.ErrInvalidState)
}

func TestWriteMeansBeforeApplyIsInvalid(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	_, classes := newStats(t, store, 1)

	transformer := newTransformer(t, store, newTransform(t), classes)
	err := transformer.WriteMeans(filepath.Join(t.TempDir(), "means"))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, adaptation.ErrInvalidState)
}

func TestIdentityTransformKeepsMeansBitIdentical(t *testing.T) {
	store, dir := loadStore(t, adaptationModel())
	stats, classes := newStats(t, store, 1)

	// a rank-deficient accumulator falls back to the exact identity
	require.Nil(t, stats.Collect(&adaptation.Result{
		Tokens: []adaptation.Token{{SenoneID: 0, Feature: []float32{0, 0}}},
	}))
	transform := newTransform(t)
	_, err := transform.Update(stats)
	require.Nil(t, err)

	transformer := newTransformer(t, store, transform, classes)
	require.Nil(t, transformer.ApplyTransform())

	for g := 0; g < store.MeansPool().Len(); g++ {
		assert.Equal(t, store.MeansPool().Get(g),
			transformer.AdaptedMeans()[g])
	}

	outPath := filepath.Join(t.TempDir(), "means")
	require.Nil(t, transformer.WriteMeans(outPath))

	original, err := os.ReadFile(filepath.Join(dir, "means"))
	require.Nil(t, err)
	adapted, err := os.ReadFile(outPath)
	require.Nil(t, err)
	assert.Equal(t, original, adapted)
}

func TestShiftTransformMovesMeans(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	stats, classes := newStats(t, store, 1)

	delta := []float32{0.5, -0.25}
	require.Nil(t, stats.Collect(shiftedResult(store, delta)))

	transform := newTransform(t)
	report, err := transform.Update(stats)
	require.Nil(t, err)
	require.Empty(t, report.Singular)

	transformer := newTransformer(t, store, transform, classes)
	require.Nil(t, transformer.ApplyTransform())

	for g := 0; g < store.MeansPool().Len(); g++ {
		mean := store.MeansPool().Get(g)
		adapted := transformer.AdaptedMeans()[g]
		for i := range mean {
			assert.InDelta(t, float64(mean[i]+delta[i]), float64(adapted[i]),
				1e-4)
		}
	}

	// the store itself stays untouched
	assert.Equal(t, []float32{0, 0}, store.MeansPool().Get(0))
}

func TestAdaptedMeansFileReloads(t *testing.T) {
	store, _ := loadStore(t, adaptationModel())
	stats, classes := newStats(t, store, 1)

	delta := []float32{1, 2}
	require.Nil(t, stats.Collect(shiftedResult(store, delta)))

	transform := newTransform(t)
	_, err := transform.Update(stats)
	require.Nil(t, err)

	transformer := newTransformer(t, store, transform, classes)
	require.Nil(t, transformer.ApplyTransform())

	// write the adapted means over a copy of the model and reload it
	dir := t.TempDir()
	m := adaptationModel()
	testinghelpers.Write(t, dir, m)
	require.Nil(t, transformer.WriteMeans(filepath.Join(dir, "means")))

	logger, _ := test.NewNullLogger()
	loader, err := acousticmodel.NewLoader(config.Config{Location: dir},
		logmath.New(), logger, nil)
	require.Nil(t, err)
	reloaded, err := loader.Load()
	require.Nil(t, err)

	for g := 0; g < store.MeansPool().Len(); g++ {
		mean := store.MeansPool().Get(g)
		for i := range mean {
			assert.InDelta(t, float64(mean[i]+delta[i]),
				float64(reloaded.MeansPool().Get(g)[i]), 1e-4)
		}
	}
}

func TestApplierHonorsRegressionClasses(t *testing.T) {
	// two far-apart groups with distinct shifts must end up in
	// distinct classes and receive distinct offsets
	m := adaptationModel()
	m.Means = [][]float32{{0, 0}, {2, 0}, {0, 3}, {50, 50}, {52, 50}, {50, 53}}
	m.Variances = [][]float32{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}
	store, _ := loadStore(t, m)

	stats, classes := newStats(t, store, 2)
	lowClass := classes.Class(0)
	highClass := classes.Class(3)
	require.NotEqual(t, lowClass, highClass)

	// shift the low group by +1 and the high group by -1 per dim
	result := &adaptation.Result{}
	for id := 0; id < store.SenonePool().Len(); id++ {
		mean := store.MeansPool().Get(id)
		shift := float32(1)
		if classes.Class(id) == highClass {
			shift = -1
		}
		result.Tokens = append(result.Tokens, adaptation.Token{
			SenoneID: id,
			Feature:  []float32{mean[0] + shift, mean[1] + shift},
		})
	}
	require.Nil(t, stats.Collect(result))

	transform := newTransform(t)
	report, err := transform.Update(stats)
	require.Nil(t, err)
	require.Empty(t, report.Singular)

	transformer := newTransformer(t, store, transform, classes)
	require.Nil(t, transformer.ApplyTransform())

	assert.InDelta(t, 1, transformer.AdaptedMeans()[0][0], 1e-3)
	assert.InDelta(t, 49, transformer.AdaptedMeans()[3][0], 1e-3)
}
