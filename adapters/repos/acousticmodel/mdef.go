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

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tiedstate/entities/acoustic"
	"github.com/weaviate/tiedstate/entities/pool"
)

// modelVersion is the mdef format this loader reads.
const modelVersion = "0.3"

const (
	fillerAttribute = "filler"
	noContextMarker = "-"
	rowTerminator   = "N"
)

// tokenizer hands out whitespace-separated mdef tokens with '#'
// comments stripped.
type tokenizer struct {
	path   string
	tokens []string
	pos    int
}

func newTokenizer(r io.Reader, path string) (*tokenizer, error) {
	t := &tokenizer{path: path}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		t.tokens = append(t.tokens, strings.Fields(line)...)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

func (t *tokenizer) next() (string, error) {
	if t.pos >= len(t.tokens) {
		return "", NewModelMalformedErrorf("unexpected end of %s", t.path)
	}
	tok := t.tokens[t.pos]
	t.pos++
	return tok, nil
}

func (t *tokenizer) expect(literal string) error {
	tok, err := t.next()
	if err != nil {
		return err
	}
	if tok != literal {
		return NewModelMalformedErrorf("%s: expected %q, got %q",
			t.path, literal, tok)
	}
	return nil
}

func (t *tokenizer) nextInt(what string) (int, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, NewModelMalformedErrorf("%s: %s is not an integer: %q",
			t.path, what, tok)
	}
	return v, nil
}

// mdefCounts are the six counted header fields of the model
// definition.
type mdefCounts struct {
	numBase        int
	numTri         int
	numStateMap    int
	numTiedState   int
	numCIState     int
	numTiedTmat    int
	numStatePerHMM int
}

func readMdefCounts(t *tokenizer) (mdefCounts, error) {
	var c mdefCounts
	var err error

	for _, field := range []struct {
		dst     *int
		keyword string
	}{
		{&c.numBase, "n_base"},
		{&c.numTri, "n_tri"},
		{&c.numStateMap, "n_state_map"},
		{&c.numTiedState, "n_tied_state"},
		{&c.numCIState, "n_tied_ci_state"},
		{&c.numTiedTmat, "n_tied_tmat"},
	} {
		if *field.dst, err = t.nextInt(field.keyword); err != nil {
			return c, err
		}
		if err = t.expect(field.keyword); err != nil {
			return c, err
		}
	}

	if c.numBase+c.numTri == 0 {
		return c, NewModelMalformedErrorf("%s: no phones declared", t.path)
	}
	c.numStatePerHMM = c.numStateMap / (c.numBase + c.numTri)
	return c, nil
}

// phoneRow is one parsed mdef phone line.
type phoneRow struct {
	name      string
	left      string
	right     string
	position  string
	attribute string
	tmat      int
	stid      []int
}

func readPhoneRow(t *tokenizer, numStatePerHMM int) (phoneRow, error) {
	var row phoneRow
	var err error

	if row.name, err = t.next(); err != nil {
		return row, err
	}
	if row.left, err = t.next(); err != nil {
		return row, err
	}
	if row.right, err = t.next(); err != nil {
		return row, err
	}
	if row.position, err = t.next(); err != nil {
		return row, err
	}
	if row.attribute, err = t.next(); err != nil {
		return row, err
	}
	if row.tmat, err = t.nextInt("tmat"); err != nil {
		return row, err
	}

	row.stid = make([]int, numStatePerHMM-1)
	for j := range row.stid {
		if row.stid[j], err = t.nextInt("tied state id"); err != nil {
			return row, err
		}
	}
	if err := t.expect(rowTerminator); err != nil {
		return row, err
	}
	return row, nil
}

// loadHMMPool parses the model definition and registers the HMM
// topology. Triphone rows are parsed even when useCDUnits is false;
// they are only registered when it is true.
func (l *Loader) loadHMMPool(useCDUnits bool, r io.Reader, path string) error {
	t, err := newTokenizer(r, path)
	if err != nil {
		return err
	}

	if err := t.expect(modelVersion); err != nil {
		return err
	}

	counts, err := readMdefCounts(t)
	if err != nil {
		return err
	}

	if got := l.mixtureWeights.Feature(pool.NumSenones, 0); counts.numTiedState != got {
		return NewModelMalformedErrorf(
			"%s declares %d tied states, mixture weights hold %d",
			path, counts.numTiedState, got)
	}
	if got := l.transitions.Len(); counts.numTiedTmat != got {
		return NewModelMalformedErrorf(
			"%s declares %d tied transition matrices, pool holds %d",
			path, counts.numTiedTmat, got)
	}

	for i := 0; i < counts.numBase; i++ {
		row, err := readPhoneRow(t, counts.numStatePerHMM)
		if err != nil {
			return err
		}
		if err := l.registerBasePhone(path, counts, row); err != nil {
			return err
		}
	}

	if l.hmmManager.Get(acoustic.PositionUndefined, l.unitManager.Silence()) == nil {
		return NewModelMalformedErrorf("no %s unit in %s",
			acoustic.SilenceUnitName, path)
	}

	// Consecutive triphone rows frequently repeat (name, left, right)
	// and the senone ids; reuse the previous unit and sequence then.
	var lastUnitKey string
	var lastUnit *acoustic.Unit
	var lastStid []int
	var lastSequence *acoustic.SenoneSequence

	for i := 0; i < counts.numTri; i++ {
		row, err := readPhoneRow(t, counts.numStatePerHMM)
		if err != nil {
			return err
		}
		if row.left == noContextMarker || row.right == noContextMarker ||
			row.position == noContextMarker {
			return NewModelMalformedErrorf(
				"%s: triphone row %s lacks context", path, row.name)
		}
		for _, stid := range row.stid {
			if stid < counts.numCIState || stid >= counts.numTiedState {
				return NewModelMalformedErrorf(
					"%s: tied state id %d of triphone %s outside [%d, %d)",
					path, stid, row.name, counts.numCIState, counts.numTiedState)
			}
		}
		if row.tmat >= counts.numTiedTmat {
			return NewModelMalformedErrorf(
				"%s: transition matrix id %d out of range", path, row.tmat)
		}

		if !useCDUnits {
			continue
		}

		var unit *acoustic.Unit
		unitKey := row.name + " " + row.left + " " + row.right
		if unitKey == lastUnitKey {
			unit = lastUnit
		} else {
			context := &acoustic.LeftRightContext{
				Left:  l.ciUnits[row.left],
				Right: l.ciUnits[row.right],
			}
			unit = l.unitManager.ContextUnit(row.name, false, context)
		}
		lastUnitKey = unitKey
		lastUnit = unit

		sequence := lastSequence
		if sequence == nil || !sameSenoneSequence(row.stid, lastStid) {
			sequence = l.senoneSequence(row.stid)
		}
		lastSequence = sequence
		lastStid = row.stid

		l.hmmManager.Put(acoustic.NewSenoneHMM(unit, sequence,
			l.transitions.Get(row.tmat), acoustic.LookupPosition(row.position)))
	}

	return nil
}

func (l *Loader) registerBasePhone(path string, counts mdefCounts, row phoneRow) error {
	if row.left != noContextMarker || row.right != noContextMarker ||
		row.position != noContextMarker {
		return NewModelMalformedErrorf(
			"%s: base phone row %s carries context", path, row.name)
	}
	for _, stid := range row.stid {
		if stid < 0 || stid >= counts.numCIState {
			return NewModelMalformedErrorf(
				"%s: tied state id %d of base phone %s outside [0, %d)",
				path, stid, row.name, counts.numCIState)
		}
	}
	if row.tmat >= counts.numTiedTmat {
		return NewModelMalformedErrorf(
			"%s: transition matrix id %d out of range", path, row.tmat)
	}

	unit := l.unitManager.Unit(row.name, row.attribute == fillerAttribute)
	l.ciUnits[unit.Name()] = unit

	l.logger.WithFields(logrus.Fields{
		"action": "acoustic_model_load",
		"unit":   unit.Name(),
	}).Debug("loaded base phone")

	l.hmmManager.Put(acoustic.NewSenoneHMM(unit, l.senoneSequence(row.stid),
		l.transitions.Get(row.tmat), acoustic.LookupPosition(row.position)))
	return nil
}

func sameSenoneSequence(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l *Loader) senoneSequence(stid []int) *acoustic.SenoneSequence {
	senones := make([]acoustic.Senone, len(stid))
	for i, id := range stid {
		senones[i] = l.senones.Get(id)
	}
	return acoustic.NewSenoneSequence(senones)
}
