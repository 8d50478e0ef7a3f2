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

package logmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearLogRoundTrip(t *testing.T) {
	lm := New()

	for _, v := range []float32{1e-7, 0.5, 1, 2, 1000} {
		back := lm.LogToLinear(lm.LinearToLog(v))
		assert.InDelta(t, v, back, float64(v)*1e-5)
	}

	assert.Equal(t, LogZero, lm.LinearToLog(0))
	assert.Equal(t, LogZero, lm.LinearToLog(-1))
	assert.Equal(t, float32(0), lm.LogToLinear(LogZero))
}

func TestAddAsLinear(t *testing.T) {
	lm := New()

	a := lm.LinearToLog(0.25)
	b := lm.LinearToLog(0.75)
	sum := lm.LogToLinear(lm.AddAsLinear(a, b))
	assert.InDelta(t, 1.0, sum, 1e-6)

	// adding log zero is a no-op
	assert.Equal(t, a, lm.AddAsLinear(a, LogZero))
	assert.Equal(t, a, lm.AddAsLinear(LogZero, a))
}

func TestNormalize(t *testing.T) {
	data := []float32{1, 3}
	Normalize(data)
	assert.Equal(t, []float32{0.25, 0.75}, data)

	zeroes := []float32{0, 0}
	Normalize(zeroes)
	assert.Equal(t, []float32{0, 0}, zeroes)
}

func TestFloorData(t *testing.T) {
	data := []float32{1e-9, 0.5, -2}
	FloorData(data, 1e-4)
	assert.Equal(t, []float32{1e-4, 0.5, 1e-4}, data)
}

func TestNonZeroFloor(t *testing.T) {
	data := []float32{0, 0.5, 0}
	NonZeroFloor(data, 0)
	assert.Greater(t, data[0], float32(0))
	assert.Equal(t, float32(0.5), data[1])
	assert.Greater(t, data[2], float32(0))

	explicit := []float32{0, 1}
	NonZeroFloor(explicit, 1e-4)
	assert.Equal(t, []float32{1e-4, 1}, explicit)
}

func TestLinearToLogInPlace(t *testing.T) {
	lm := New()
	data := []float32{1, float32(math.E), 0}
	lm.LinearToLogInPlace(data)
	assert.InDelta(t, 0, data[0], 1e-6)
	assert.InDelta(t, 1, data[1], 1e-6)
	assert.Equal(t, LogZero, data[2])
}
