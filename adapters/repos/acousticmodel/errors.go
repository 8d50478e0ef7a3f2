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

package acousticmodel

import "fmt"

// ModelMalformedError indicates a semantic inconsistency between the
// model files: pool sizes that do not line up, tied-state ids outside
// their ranges or a model without a silence phone.
type ModelMalformedError struct {
	Msg string
}

func NewModelMalformedErrorf(msg string, args ...interface{}) error {
	return ModelMalformedError{Msg: fmt.Sprintf(msg, args...)}
}

func (e ModelMalformedError) Error() string {
	return fmt.Sprintf("malformed acoustic model: %s", e.Msg)
}
