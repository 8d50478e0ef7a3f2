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

// l2Squared is the clustering distance. Vectors are trusted to have
// equal length; the clusterer only compares means from one pool.
func l2Squared(a, b []float32) float32 {
	var sum float32

	for i := range a {
		diff := a[i] - b[i]

		sum += diff * diff
	}

	return sum
}
