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
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/weaviate/tiedstate/adapters/repos/acousticmodel"
	"github.com/weaviate/tiedstate/adapters/repos/s3"
)

// Transformer applies a solved transform to the model's means and
// serializes the adapted copy. The store itself is never mutated; the
// adapted means live in a fresh buffer shaped like the on-disk file.
type Transformer struct {
	store     *acousticmodel.Store
	transform *Transform
	classes   *RegressionClasses
	logger    logrus.FieldLogger

	adaptedMeans [][]float32
}

func NewTransformer(store *acousticmodel.Store, transform *Transform,
	classes *RegressionClasses, logger logrus.FieldLogger,
) *Transformer {
	return &Transformer{
		store:     store,
		transform: transform,
		classes:   classes,
		logger:    logger,
	}
}

// ApplyTransform rewrites every mean as A_c*mu + b_c. It is only
// legal on a READY transform and moves it to APPLIED.
func (tr *Transformer) ApplyTransform() error {
	if tr.transform.State() != StateReady {
		return errors.Wrapf(ErrInvalidState, "apply in state %s",
			tr.transform.State())
	}

	means := tr.store.MeansPool()
	d := tr.transform.Dimension()

	// one gonum matrix/vector pair per class, reused across gaussians
	rotations := make([]*mat.Dense, tr.transform.K())
	offsets := make([]*mat.VecDense, tr.transform.K())
	for c := range rotations {
		data := make([]float64, d*d)
		for i, row := range tr.transform.A(c) {
			for j, v := range row {
				data[i*d+j] = float64(v)
			}
		}
		rotations[c] = mat.NewDense(d, d, data)

		offset := make([]float64, d)
		for i, v := range tr.transform.B(c) {
			offset[i] = float64(v)
		}
		offsets[c] = mat.NewVecDense(d, offset)
	}

	tr.adaptedMeans = make([][]float32, means.Len())
	in := mat.NewVecDense(d, nil)
	out := mat.NewVecDense(d, nil)
	for g := 0; g < means.Len(); g++ {
		mean := means.Get(g)
		if len(mean) != d {
			return errors.Errorf(
				"mean %d has dimension %d, transform is %d", g, len(mean), d)
		}
		for i, v := range mean {
			in.SetVec(i, float64(v))
		}

		class := tr.classes.Class(g)
		out.MulVec(rotations[class], in)
		out.AddVec(out, offsets[class])

		adapted := make([]float32, d)
		for i := range adapted {
			adapted[i] = float32(out.AtVec(i))
		}
		tr.adaptedMeans[g] = adapted
	}

	tr.transform.markApplied()
	tr.logger.WithFields(logrus.Fields{
		"action":    "mllr_apply",
		"gaussians": means.Len(),
		"classes":   tr.transform.K(),
	}).Info("means transformed")

	return nil
}

// AdaptedMeans exposes the transformed buffer, mainly for tests and
// in-process rescoring. Nil until ApplyTransform has run.
func (tr *Transformer) AdaptedMeans() [][]float32 {
	return tr.adaptedMeans
}

// WriteMeans serializes the adapted means in the same s3 binary layout
// as the input means file: native byte order, checksummed, with the
// original state, stream and density counts.
func (tr *Transformer) WriteMeans(path string) error {
	if tr.adaptedMeans == nil {
		return errors.Wrap(ErrInvalidState, "write means before apply")
	}

	numSenones := tr.store.NumSenones()
	numStreams := tr.store.NumStreams()
	g := tr.store.NumGaussiansPerSenone()
	vectorLengths := tr.store.VectorLengths()

	wr, err := s3.Create(path, []s3.HeaderProp{
		{Name: s3.PropVersion, Value: "1.0"},
		{Name: s3.PropChecksum, Value: "yes"},
	})
	if err != nil {
		return err
	}

	if err := tr.writeMeansBody(wr, numSenones, numStreams, g, vectorLengths); err != nil {
		wr.Close()
		return err
	}
	if err := wr.WriteChecksum(); err != nil {
		wr.Close()
		return err
	}
	if err := wr.Close(); err != nil {
		return err
	}

	tr.logger.WithFields(logrus.Fields{
		"action": "mllr_apply",
		"path":   path,
	}).Info("adapted means written")
	return nil
}

func (tr *Transformer) writeMeansBody(wr *s3.Writer, numSenones, numStreams,
	g int, vectorLengths []int,
) error {
	if err := wr.WriteInt(int32(numSenones)); err != nil {
		return err
	}
	if err := wr.WriteInt(int32(numStreams)); err != nil {
		return err
	}
	if err := wr.WriteInt(int32(g)); err != nil {
		return err
	}
	rawLength := 0
	for _, length := range vectorLengths {
		if err := wr.WriteInt(int32(length)); err != nil {
			return err
		}
		rawLength += length * g * numSenones
	}
	if err := wr.WriteInt(int32(rawLength)); err != nil {
		return err
	}

	for i := 0; i < numSenones; i++ {
		for j := 0; j < numStreams; j++ {
			for k := 0; k < g; k++ {
				vector := tr.adaptedMeans[i*numStreams*g+j*g+k]
				if len(vector) != vectorLengths[j] {
					return fmt.Errorf(
						"adapted mean %d has length %d, stream %d expects %d",
						i*numStreams*g+j*g+k, len(vector), j, vectorLengths[j])
				}
				if err := wr.WriteFloatArray(vector); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
