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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveRowRecoversKnownSolution(t *testing.T) {
	// 2x + y = 5, x + 3y = 10
	g := [][]float64{{2, 1}, {1, 3}}
	z := []float64{5, 10}

	w, ok := solveRow(g, z)
	require.True(t, ok)
	assert.InDelta(t, 1, w[0], 1e-12)
	assert.InDelta(t, 3, w[1], 1e-12)
}

func TestSolveRowNeedsPivoting(t *testing.T) {
	// a zero leading diagonal entry forces a row swap
	g := [][]float64{{0, 1}, {1, 0}}
	z := []float64{2, 3}

	w, ok := solveRow(g, z)
	require.True(t, ok)
	assert.InDelta(t, 3, w[0], 1e-12)
	assert.InDelta(t, 2, w[1], 1e-12)
}

func TestSolveRowDetectsSingularity(t *testing.T) {
	g := [][]float64{{1, 2}, {2, 4}}
	z := []float64{1, 2}

	_, ok := solveRow(g, z)
	assert.False(t, ok)
}

func TestIdentityRow(t *testing.T) {
	row := identityRow(3, 1)
	assert.Equal(t, []float64{0, 1, 0, 0}, row)
}
