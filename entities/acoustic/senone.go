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

package acoustic

import (
	"math"

	"github.com/weaviate/tiedstate/entities/logmath"
)

// Senone is a tied HMM state. The only concrete realization today is
// the GaussianMixture; the interface keeps the senone pool open for
// other density types.
type Senone interface {
	ID() int
	// Score returns the log likelihood of the feature under this
	// senone.
	Score(feature []float32) float32
	// ComponentScores returns the per-component log scores including
	// the log mixture weight.
	ComponentScores(feature []float32) []float32
	NumComponents() int
	Component(i int) *MixtureComponent
}

// MixtureComponent is a single diagonal-covariance Gaussian. Mean and
// variance transformations, when present, are folded in once at
// construction; the raw mean and variance stay accessible for the
// adaptation statistics.
type MixtureComponent struct {
	mean     []float32
	variance []float32

	meanTransformed []float32
	invVariance     []float32

	logNormConst float32
	logDistFloor float32
}

// NewMixtureComponent builds a component from pool vectors. The
// transformation matrix/vector arguments may be nil, which means
// identity. The variance used for scoring is floored to varianceFloor
// before its inverse is precomputed; scores never drop below distFloor.
func NewMixtureComponent(lm *logmath.LogMath, mean []float32,
	meanTransformationMatrix [][]float32, meanTransformationVector []float32,
	variance []float32,
	varianceTransformationMatrix [][]float32, varianceTransformationVector []float32,
	distFloor, varianceFloor float32,
) *MixtureComponent {
	c := &MixtureComponent{
		mean:         mean,
		variance:     variance,
		logDistFloor: lm.LinearToLog(distFloor),
	}

	c.meanTransformed = transformVector(mean, meanTransformationMatrix,
		meanTransformationVector)
	varianceTransformed := transformVector(variance,
		varianceTransformationMatrix, varianceTransformationVector)
	logmath.FloorData(varianceTransformed, varianceFloor)

	c.invVariance = make([]float32, len(varianceTransformed))
	logDet := 0.0
	for i, v := range varianceTransformed {
		c.invVariance[i] = 1 / v
		logDet += math.Log(float64(v))
	}
	d := float64(len(varianceTransformed))
	c.logNormConst = float32(0.5 * (d*math.Log(2*math.Pi) + logDet))

	return c
}

func transformVector(in []float32, matrix [][]float32, offset []float32) []float32 {
	out := make([]float32, len(in))
	if matrix == nil {
		copy(out, in)
	} else {
		for i := range matrix {
			var sum float32
			for j, m := range matrix[i] {
				sum += m * in[j]
			}
			out[i] = sum
		}
	}
	if offset != nil {
		for i := range offset {
			out[i] += offset[i]
		}
	}
	return out
}

// Mean returns the untransformed model mean.
func (c *MixtureComponent) Mean() []float32 {
	return c.mean
}

// Variance returns the untransformed model variance, already floored
// by the loader.
func (c *MixtureComponent) Variance() []float32 {
	return c.variance
}

// Score returns the log density of the feature under this Gaussian.
func (c *MixtureComponent) Score(feature []float32) float32 {
	var mahalanobis float32
	for i, x := range feature {
		diff := x - c.meanTransformed[i]
		mahalanobis += diff * diff * c.invVariance[i]
	}
	score := -0.5*mahalanobis - c.logNormConst
	if score < c.logDistFloor {
		score = c.logDistFloor
	}
	return score
}

// GaussianMixture is a senone realized as a GMM over an ordered list
// of mixture components with log-domain mixture weights.
type GaussianMixture struct {
	id                int
	logMixtureWeights []float32
	mixtureComponents []*MixtureComponent
	lm                *logmath.LogMath
}

func NewGaussianMixture(lm *logmath.LogMath, logMixtureWeights []float32,
	mixtureComponents []*MixtureComponent, id int,
) *GaussianMixture {
	return &GaussianMixture{
		id:                id,
		logMixtureWeights: logMixtureWeights,
		mixtureComponents: mixtureComponents,
		lm:                lm,
	}
}

func (g *GaussianMixture) ID() int {
	return g.id
}

func (g *GaussianMixture) NumComponents() int {
	return len(g.mixtureComponents)
}

func (g *GaussianMixture) Component(i int) *MixtureComponent {
	return g.mixtureComponents[i]
}

func (g *GaussianMixture) LogMixtureWeights() []float32 {
	return g.logMixtureWeights
}

func (g *GaussianMixture) ComponentScores(feature []float32) []float32 {
	scores := make([]float32, len(g.mixtureComponents))
	for i, c := range g.mixtureComponents {
		scores[i] = g.logMixtureWeights[i] + c.Score(feature)
	}
	return scores
}

func (g *GaussianMixture) Score(feature []float32) float32 {
	score := logmath.LogZero
	for i, c := range g.mixtureComponents {
		score = g.lm.AddAsLinear(score, g.logMixtureWeights[i]+c.Score(feature))
	}
	return score
}

// ComponentPosteriors converts the component scores into normalized
// linear posteriors, shifted by the maximum score for stability.
func (g *GaussianMixture) ComponentPosteriors(feature []float32) []float32 {
	scores := g.ComponentScores(feature)
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	posteriors := make([]float32, len(scores))
	var sum float32
	for i, s := range scores {
		posteriors[i] = g.lm.LogToLinear(s - max)
		sum += posteriors[i]
	}
	if sum > 0 {
		for i := range posteriors {
			posteriors[i] /= sum
		}
	}
	return posteriors
}
