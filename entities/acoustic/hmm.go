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
	"github.com/sirupsen/logrus"
)

// HMMPosition is the within-word position an HMM models.
type HMMPosition int

const (
	PositionUndefined HMMPosition = iota
	PositionBegin
	PositionMiddle
	PositionEnd
	PositionSingle
	PositionInternal
)

// LookupPosition maps an mdef position token to its HMMPosition. The
// dash marks a context-independent row and maps to Undefined.
func LookupPosition(token string) HMMPosition {
	switch token {
	case "b":
		return PositionBegin
	case "m":
		return PositionMiddle
	case "e":
		return PositionEnd
	case "s":
		return PositionSingle
	case "i":
		return PositionInternal
	default:
		return PositionUndefined
	}
}

func (p HMMPosition) String() string {
	switch p {
	case PositionBegin:
		return "b"
	case PositionMiddle:
		return "m"
	case PositionEnd:
		return "e"
	case PositionSingle:
		return "s"
	case PositionInternal:
		return "i"
	default:
		return "-"
	}
}

// SenoneSequence is the ordered list of senones an HMM walks through,
// shared between identical consecutive triphone rows.
type SenoneSequence struct {
	senones []Senone
}

func NewSenoneSequence(senones []Senone) *SenoneSequence {
	return &SenoneSequence{senones: senones}
}

func (s *SenoneSequence) Len() int {
	return len(s.senones)
}

func (s *SenoneSequence) Senone(i int) Senone {
	return s.senones[i]
}

// SenoneHMM binds a unit to its senone sequence and tied transition
// matrix at a given position.
type SenoneHMM struct {
	unit        *Unit
	sequence    *SenoneSequence
	transitions [][]float32
	position    HMMPosition
}

func NewSenoneHMM(unit *Unit, sequence *SenoneSequence,
	transitions [][]float32, position HMMPosition,
) *SenoneHMM {
	return &SenoneHMM{
		unit:        unit,
		sequence:    sequence,
		transitions: transitions,
		position:    position,
	}
}

func (h *SenoneHMM) Unit() *Unit {
	return h.unit
}

func (h *SenoneHMM) SenoneSequence() *SenoneSequence {
	return h.sequence
}

// TransitionMatrix is row stochastic in the log domain; the final row
// is all LogZero.
func (h *SenoneHMM) TransitionMatrix() [][]float32 {
	return h.transitions
}

func (h *SenoneHMM) Position() HMMPosition {
	return h.position
}

type hmmKey struct {
	position HMMPosition
	unit     *Unit
}

// HMMManager indexes HMMs by (position, unit).
type HMMManager struct {
	hmms map[hmmKey]*SenoneHMM
}

func NewHMMManager() *HMMManager {
	return &HMMManager{hmms: map[hmmKey]*SenoneHMM{}}
}

func (m *HMMManager) Put(hmm *SenoneHMM) {
	m.hmms[hmmKey{position: hmm.Position(), unit: hmm.Unit()}] = hmm
}

// Get returns the HMM registered for (position, unit), or nil.
func (m *HMMManager) Get(position HMMPosition, unit *Unit) *SenoneHMM {
	return m.hmms[hmmKey{position: position, unit: unit}]
}

func (m *HMMManager) Len() int {
	return len(m.hmms)
}

func (m *HMMManager) LogInfo(logger logrus.FieldLogger) {
	logger.WithFields(logrus.Fields{
		"action": "hmm_stats",
		"hmms":   len(m.hmms),
	}).Debug("hmm topology loaded")
}
