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
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidState signals an operation called outside its lifecycle
// phase, e.g. applying a transform that was never solved.
var ErrInvalidState = errors.New("adaptation: operation not allowed in current state")

// SingularClassError records one regression class dimension whose
// accumulator was numerically singular. It is reported through the
// solve report, never returned as a failure: the affected row falls
// back to the identity transform.
type SingularClassError struct {
	Class     int
	Dimension int
}

func (e SingularClassError) Error() string {
	return fmt.Sprintf(
		"singular accumulator for regression class %d dimension %d, using identity",
		e.Class, e.Dimension)
}

// State is the adaptation lifecycle phase.
type State int

const (
	StateEmpty State = iota
	StateCollecting
	StateReady
	StateApplied
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateCollecting:
		return "collecting"
	case StateReady:
		return "ready"
	case StateApplied:
		return "applied"
	default:
		return "unknown"
	}
}
