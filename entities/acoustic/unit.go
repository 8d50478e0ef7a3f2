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

// Package acoustic contains the passive types a tied-state acoustic
// model is assembled from: phonetic units, senones and HMM topology.
// Everything in here is immutable once the loader has finished, so
// instances may be shared freely across readers.
package acoustic

import "fmt"

// SilenceUnitName is the canonical context-independent silence phone.
const SilenceUnitName = "SIL"

// LeftRightContext describes the single-phone left/right neighborhood
// of a triphone unit.
type LeftRightContext struct {
	Left  *Unit
	Right *Unit
}

func (c *LeftRightContext) String() string {
	return fmt.Sprintf("%s,%s", unitName(c.Left), unitName(c.Right))
}

func unitName(u *Unit) string {
	if u == nil {
		return "*"
	}
	return u.Name()
}

// Unit is a phonetic unit, either context independent (Context == nil)
// or a triphone with a left/right context.
type Unit struct {
	name    string
	filler  bool
	context *LeftRightContext
}

func (u *Unit) Name() string {
	return u.name
}

func (u *Unit) IsFiller() bool {
	return u.filler
}

// Context returns nil for context-independent units.
func (u *Unit) Context() *LeftRightContext {
	return u.context
}

func (u *Unit) IsContextDependent() bool {
	return u.context != nil
}

func (u *Unit) String() string {
	if u.context == nil {
		return u.name
	}
	return fmt.Sprintf("%s[%s]", u.name, u.context)
}

// UnitManager interns units so that equal phones share one instance,
// which in turn lets the HMM manager key maps by unit pointer. It owns
// the one silence unit every model must provide.
type UnitManager struct {
	ciUnits map[string]*Unit
	cdUnits map[string]*Unit
	silence *Unit
}

func NewUnitManager() *UnitManager {
	m := &UnitManager{
		ciUnits: map[string]*Unit{},
		cdUnits: map[string]*Unit{},
	}
	m.silence = m.Unit(SilenceUnitName, true)
	return m
}

// Silence returns the canonical silence unit.
func (m *UnitManager) Silence() *Unit {
	return m.silence
}

// Unit returns the interned context-independent unit with the given
// name, creating it on first use.
func (m *UnitManager) Unit(name string, filler bool) *Unit {
	if u, ok := m.ciUnits[name]; ok {
		return u
	}
	u := &Unit{name: name, filler: filler}
	m.ciUnits[name] = u
	return u
}

// ContextUnit returns the interned context-dependent unit with the
// given name and context.
func (m *UnitManager) ContextUnit(name string, filler bool, context *LeftRightContext) *Unit {
	key := name + " " + context.String()
	if u, ok := m.cdUnits[key]; ok {
		return u
	}
	u := &Unit{name: name, filler: filler, context: context}
	m.cdUnits[key] = u
	return u
}
