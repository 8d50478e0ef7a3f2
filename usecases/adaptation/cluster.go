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
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/weaviate/tiedstate/entities/pool"
)

// DefaultClusterIterations bounds the Lloyd iteration.
const DefaultClusterIterations = 20

// RegressionClasses maps every Gaussian mean to one of K regression
// classes sharing an MLLR transform. The clustering is deterministic
// for a fixed means pool and K: initial centroids are picked on a
// fixed stride, assignment ties break towards the lowest class id and
// empty classes retain their previous centroid.
type RegressionClasses struct {
	k          int
	assignment []int
	centroids  [][]float32
	sizes      []int
}

// ClusterMeans partitions the means pool into k classes by Lloyd
// iteration on squared Euclidean distance, stopping when assignments
// stabilize or after maxIterations rounds. k == 1 is the global MLLR
// case and returns the trivial map without iterating.
func ClusterMeans(means *pool.Pool[[]float32], k, maxIterations int,
) (*RegressionClasses, error) {
	numMeans := means.Len()
	if k < 1 {
		return nil, errors.Errorf("cluster means: k must be positive, got %d", k)
	}
	if numMeans < k {
		return nil, errors.Errorf(
			"cluster means: %d classes for %d gaussians", k, numMeans)
	}
	if maxIterations < 1 {
		maxIterations = DefaultClusterIterations
	}

	c := &RegressionClasses{
		k:          k,
		assignment: make([]int, numMeans),
		sizes:      make([]int, k),
	}

	if k == 1 {
		c.sizes[0] = numMeans
		return c, nil
	}

	dims := len(means.Get(0))
	stride := numMeans / k
	c.centroids = make([][]float32, k)
	for i := range c.centroids {
		c.centroids[i] = make([]float32, dims)
		copy(c.centroids[i], means.Get(i*stride))
	}
	for i := range c.assignment {
		c.assignment[i] = -1
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		changes := 0
		for g := 0; g < numMeans; g++ {
			nearest := c.nearest(means.Get(g))
			if nearest != c.assignment[g] {
				changes++
			}
			c.assignment[g] = nearest
		}

		c.recomputeCentroids(means, dims)

		if changes == 0 {
			break
		}
	}

	for i := range c.sizes {
		c.sizes[i] = 0
	}
	for _, class := range c.assignment {
		c.sizes[class]++
	}

	return c, nil
}

func (c *RegressionClasses) nearest(point []float32) int {
	best := 0
	bestDist := l2Squared(point, c.centroids[0])
	for i := 1; i < c.k; i++ {
		if d := l2Squared(point, c.centroids[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func (c *RegressionClasses) recomputeCentroids(means *pool.Pool[[]float32], dims int) {
	sums := make([][]float64, c.k)
	counts := make([]int, c.k)
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for g := 0; g < means.Len(); g++ {
		class := c.assignment[g]
		counts[class]++
		for d, v := range means.Get(g) {
			sums[class][d] += float64(v)
		}
	}
	for i := range c.centroids {
		if counts[i] == 0 {
			// an empty class keeps its previous centroid
			continue
		}
		floats.Scale(1/float64(counts[i]), sums[i])
		for d := range c.centroids[i] {
			c.centroids[i][d] = float32(sums[i][d])
		}
	}
}

// Class returns the regression class of a Gaussian id.
func (c *RegressionClasses) Class(gaussianID int) int {
	return c.assignment[gaussianID]
}

func (c *RegressionClasses) K() int {
	return c.k
}

// Size returns the member count of one class.
func (c *RegressionClasses) Size(class int) int {
	return c.sizes[class]
}

func (c *RegressionClasses) NumGaussians() int {
	return len(c.assignment)
}
