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

package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolPutGet(t *testing.T) {
	p := New[[]float32]("means")

	p.Put(0, []float32{1, 2})
	p.Put(1, []float32{3, 4})

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []float32{1, 2}, p.Get(0))
	assert.Equal(t, []float32{3, 4}, p.Get(1))
	assert.Equal(t, "means", p.Name())
}

func TestPoolGrowsOnSparsePut(t *testing.T) {
	p := New[int]("ids")
	p.Put(3, 42)

	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 42, p.Get(3))
	assert.Equal(t, 0, p.Get(1))
}

func TestPoolFeatures(t *testing.T) {
	p := New[[]float32]("mixture_weights")

	assert.Equal(t, 7, p.Feature(NumSenones, 7))

	p.SetFeature(NumSenones, 42)
	p.SetFeature(NumStreams, 1)
	p.SetFeature(NumGaussiansPerState, 8)

	assert.Equal(t, 42, p.Feature(NumSenones, 0))
	assert.Equal(t, 1, p.Feature(NumStreams, 0))
	assert.Equal(t, 8, p.Feature(NumGaussiansPerState, 0))
}
