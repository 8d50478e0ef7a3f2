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

// Package logmath provides fixed-precision log-domain arithmetic for
// acoustic scores. All values are natural logarithms stored as float32,
// with LogZero standing in for log(0).
package logmath

import "math"

// LogZero is the smallest representable log value. Linear zero maps to
// LogZero and LogZero maps back to linear zero.
const LogZero float32 = -math.MaxFloat32

// LogMath is an explicit context so that loader and solver share one
// log domain without global state.
type LogMath struct{}

func New() *LogMath {
	return &LogMath{}
}

func (lm *LogMath) LinearToLog(v float32) float32 {
	if v <= 0 {
		return LogZero
	}
	return float32(math.Log(float64(v)))
}

func (lm *LogMath) LogToLinear(v float32) float32 {
	if v <= LogZero {
		return 0
	}
	return float32(math.Exp(float64(v)))
}

// LinearToLogInPlace converts a vector of linear values to the log
// domain.
func (lm *LogMath) LinearToLogInPlace(data []float32) {
	for i := range data {
		data[i] = lm.LinearToLog(data[i])
	}
}

// AddAsLinear returns log(exp(a) + exp(b)) without leaving the log
// domain for the larger operand.
func (lm *LogMath) AddAsLinear(a, b float32) float32 {
	if a < b {
		a, b = b, a
	}
	if b <= LogZero {
		return a
	}
	return a + float32(math.Log1p(math.Exp(float64(b-a))))
}

// Normalize scales the vector so its entries sum to one. A zero-sum
// vector is left untouched.
func Normalize(data []float32) {
	var sum float32
	for _, v := range data {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range data {
		data[i] /= sum
	}
}

// FloorData raises every entry below floor up to floor.
func FloorData(data []float32, floor float32) {
	for i := range data {
		if data[i] < floor {
			data[i] = floor
		}
	}
}

// smallestNonZero keeps transition rows strictly positive so the log
// conversion stays finite.
const smallestNonZero float32 = 1e-8

// NonZeroFloor replaces exact zeroes by floor (or by a tiny positive
// value when floor itself is zero) and leaves every other entry
// unchanged.
func NonZeroFloor(data []float32, floor float32) {
	if floor <= 0 {
		floor = smallestNonZero
	}
	for i := range data {
		if data[i] == 0 {
			data[i] = floor
		}
	}
}
