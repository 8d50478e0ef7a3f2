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

// Package pool holds the write-once indexed collections an acoustic
// model is assembled from.
package pool

import (
	"github.com/sirupsen/logrus"
)

// Feature names integer metadata attached to a pool.
type Feature string

const (
	NumSenones           Feature = "numSenones"
	NumStreams           Feature = "numStreams"
	NumGaussiansPerState Feature = "numGaussiansPerState"
)

// Pool maps a dense integer id to values of type T. Pools are filled
// once during model load and read-only afterwards.
type Pool[T any] struct {
	name     string
	items    []T
	features map[Feature]int
}

func New[T any](name string) *Pool[T] {
	return &Pool[T]{
		name:     name,
		features: map[Feature]int{},
	}
}

func (p *Pool[T]) Name() string {
	return p.name
}

// Put places value at id, growing the pool as needed. Ids are expected
// to be dense; a sparse put leaves zero values in the gap.
func (p *Pool[T]) Put(id int, value T) {
	if id >= len(p.items) {
		grown := make([]T, id+1)
		copy(grown, p.items)
		p.items = grown
	}
	p.items[id] = value
}

func (p *Pool[T]) Get(id int) T {
	return p.items[id]
}

func (p *Pool[T]) Len() int {
	return len(p.items)
}

func (p *Pool[T]) SetFeature(name Feature, value int) {
	p.features[name] = value
}

// Feature returns the named metadata entry, or defaultValue if it was
// never set.
func (p *Pool[T]) Feature(name Feature, defaultValue int) int {
	if v, ok := p.features[name]; ok {
		return v
	}
	return defaultValue
}

func (p *Pool[T]) LogInfo(logger logrus.FieldLogger) {
	logger.WithFields(logrus.Fields{
		"action": "pool_stats",
		"pool":   p.name,
		"size":   len(p.items),
	}).Debug("pool loaded")
}
