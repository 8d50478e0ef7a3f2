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

// Package adaptation estimates and applies MLLR speaker adaptation on
// top of a loaded acoustic model: it clusters the Gaussian means into
// regression classes, accumulates sufficient statistics from decoded
// results, solves one affine transform per class and rewrites the
// means.
package adaptation

// Token is one frame of a decoded utterance: the senone the aligner
// put the frame on and the frame's feature vector. Tokens without
// features (e.g. non-emitting states) carry a nil Feature and are
// skipped during accumulation.
type Token struct {
	SenoneID int
	Feature  []float32
}

// Result is the token timeline of one decoded utterance, produced by
// an upstream recognizer.
type Result struct {
	Tokens []Token
}
