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

// Package acousticmodel loads a tied-state acoustic model produced by
// the Sphinx-3 trainer: the binary density, mixture weight and
// transition pools, the optional feature transform, the textual model
// definition and the feat.params properties. The result is an
// immutable Store.
package acousticmodel

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tiedstate/adapters/repos/s3"
	"github.com/weaviate/tiedstate/entities/acoustic"
	"github.com/weaviate/tiedstate/entities/logmath"
	"github.com/weaviate/tiedstate/entities/pool"
	"github.com/weaviate/tiedstate/usecases/config"
	"github.com/weaviate/tiedstate/usecases/monitoring"
)

const (
	densityFileVersion   = "1.0"
	mixwFileVersion      = "1.0"
	tmatFileVersion      = "1.0"
	transformFileVersion = "0.1"
)

const (
	meansFile      = "means"
	variancesFile  = "variances"
	mixwFile       = "mixture_weights"
	tmatFile       = "transition_matrices"
	transformFile  = "feature_transform"
	featParamsFile = "feat.params"
)

// Loader orchestrates a single eager load of the model files in a
// fixed order. It is not safe for concurrent use; the Store it
// produces is.
type Loader struct {
	cfg         config.Config
	logger      logrus.FieldLogger
	lm          *logmath.LogMath
	unitManager *acoustic.UnitManager
	metrics     *monitoring.PrometheusMetrics

	means          *pool.Pool[[]float32]
	variances      *pool.Pool[[]float32]
	mixtureWeights *pool.Pool[[]float32]
	transitions    *pool.Pool[[][]float32]
	senones        *pool.Pool[acoustic.Senone]
	ciUnits        map[string]*acoustic.Unit
	hmmManager     *acoustic.HMMManager

	store  *Store
	loaded bool
}

// NewLoader validates the configuration and prepares a loader. The
// metrics argument may be nil.
func NewLoader(cfg config.Config, lm *logmath.LogMath,
	logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics,
) (*Loader, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Loader{
		cfg:         cfg,
		logger:      logger,
		lm:          lm,
		unitManager: acoustic.NewUnitManager(),
		metrics:     metrics,
	}, nil
}

func (l *Loader) dataPath(name string) string {
	return filepath.Join(l.cfg.Location, l.cfg.DataLocation, name)
}

// Load reads all model files and assembles the store. It runs once;
// subsequent calls return the already assembled store.
func (l *Loader) Load() (*Store, error) {
	if l.loaded {
		return l.store, nil
	}

	start := time.Now()
	l.logger.WithFields(logrus.Fields{
		"action":           "acoustic_model_load",
		"location":         l.cfg.Location,
		"model_definition": l.cfg.ModelDefinition,
		"data_location":    l.cfg.DataLocation,
	}).Info("loading acoustic model")

	l.ciUnits = map[string]*acoustic.Unit{}
	l.hmmManager = acoustic.NewHMMManager()

	var err error
	var vectorLengths []int
	if l.means, vectorLengths, err = l.loadDensityFile(meansFile,
		-math.MaxFloat32); err != nil {
		return nil, err
	}
	if l.variances, _, err = l.loadDensityFile(variancesFile,
		l.cfg.VarianceFloor); err != nil {
		return nil, err
	}
	if l.mixtureWeights, err = l.loadMixtureWeights(mixwFile,
		l.cfg.MixtureWeightFloor); err != nil {
		return nil, err
	}
	if l.transitions, err = l.loadTransitionMatrices(tmatFile); err != nil {
		return nil, err
	}
	transformMatrix, err := l.loadTransformMatrix(transformFile)
	if err != nil {
		return nil, err
	}

	if l.senones, err = l.createSenonePool(l.cfg.MixtureComponentScoreFloor,
		l.cfg.VarianceFloor); err != nil {
		return nil, err
	}

	mdefPath := filepath.Join(l.cfg.Location, l.cfg.ModelDefinition)
	mdef, err := os.Open(mdefPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open model definition %s", mdefPath)
	}
	defer mdef.Close()
	if err := l.loadHMMPool(*l.cfg.UseCDUnits, mdef, mdefPath); err != nil {
		return nil, err
	}

	properties, err := l.loadModelProps(featParamsFile)
	if err != nil {
		return nil, err
	}

	l.store = &Store{
		means:          l.means,
		variances:      l.variances,
		mixtureWeights: l.mixtureWeights,
		transitions:    l.transitions,
		senones:        l.senones,

		transformMatrix: transformMatrix,

		ciUnits:     l.ciUnits,
		unitManager: l.unitManager,
		hmmManager:  l.hmmManager,
		properties:  properties,

		vectorLengths: vectorLengths,
	}
	l.loaded = true

	l.metrics.SetPoolSize(meansFile, l.means.Len())
	l.metrics.SetPoolSize(variancesFile, l.variances.Len())
	l.metrics.SetPoolSize(mixwFile, l.mixtureWeights.Len())
	l.metrics.SetPoolSize(tmatFile, l.transitions.Len())
	l.metrics.SetPoolSize("senones", l.senones.Len())
	l.metrics.ObserveModelLoad("total", start)

	l.store.LogInfo(l.logger)
	l.logger.WithFields(logrus.Fields{
		"action":        "acoustic_model_load",
		"took_duration": time.Since(start),
	}).Info("acoustic model loaded")

	return l.store, nil
}

// UnitManager exposes the interned units, mainly so an upstream
// linguist can share them.
func (l *Loader) UnitManager() *acoustic.UnitManager {
	return l.unitManager
}

func checksumDeclared(props map[string]string) bool {
	return props[s3.PropChecksum] == "yes"
}

// loadDensityFile reads a means or variances file, flooring every
// vector, and returns the pool along with the per-stream vector
// lengths.
func (l *Loader) loadDensityFile(name string, floor float32,
) (*pool.Pool[[]float32], []int, error) {
	path := l.dataPath(name)
	start := time.Now()

	props, rd, err := s3.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer rd.Close()

	if v := props[s3.PropVersion]; v != densityFileVersion {
		return nil, nil, s3.UnsupportedVersionError{
			Path: path, Version: v, Want: densityFileVersion,
		}
	}
	doChecksum := checksumDeclared(props)
	rd.ResetChecksum()

	numStates, err := rd.ReadInt()
	if err != nil {
		return nil, nil, err
	}
	numStreams, err := rd.ReadInt()
	if err != nil {
		return nil, nil, err
	}
	numGaussiansPerState, err := rd.ReadInt()
	if err != nil {
		return nil, nil, err
	}

	vectorLengths := make([]int, numStreams)
	blockSize := 0
	for i := range vectorLengths {
		length, err := rd.ReadInt()
		if err != nil {
			return nil, nil, err
		}
		vectorLengths[i] = int(length)
		blockSize += int(length)
	}

	rawLength, err := rd.ReadInt()
	if err != nil {
		return nil, nil, err
	}
	if int(rawLength) != int(numGaussiansPerState)*blockSize*int(numStates) {
		return nil, nil, NewModelMalformedErrorf(
			"%s declares %d values, header sums to %d",
			path, rawLength, int(numGaussiansPerState)*blockSize*int(numStates))
	}

	l.logger.WithFields(logrus.Fields{
		"action":                  "acoustic_model_load",
		"file":                    name,
		"num_states":              numStates,
		"num_streams":             numStreams,
		"num_gaussians_per_state": numGaussiansPerState,
	}).Debug("loading density file")

	p := pool.New[[]float32](name)
	p.SetFeature(pool.NumSenones, int(numStates))
	p.SetFeature(pool.NumStreams, int(numStreams))
	p.SetFeature(pool.NumGaussiansPerState, int(numGaussiansPerState))

	g := int(numGaussiansPerState)
	for i := 0; i < int(numStates); i++ {
		for j := 0; j < int(numStreams); j++ {
			for k := 0; k < g; k++ {
				density, err := rd.ReadFloatArray(vectorLengths[j])
				if err != nil {
					return nil, nil, err
				}
				logmath.FloorData(density, floor)
				p.Put(i*int(numStreams)*g+j*g+k, density)
			}
		}
	}

	if err := rd.ValidateChecksum(doChecksum); err != nil {
		return nil, nil, err
	}

	l.metrics.ObserveModelLoad(name, start)
	return p, vectorLengths, nil
}

// loadMixtureWeights reads the mixture weight file, normalizing and
// flooring each state's weights before converting them to the log
// domain. Multi-stream weights are concatenated into one vector per
// state.
func (l *Loader) loadMixtureWeights(name string, floor float32,
) (*pool.Pool[[]float32], error) {
	path := l.dataPath(name)
	start := time.Now()

	props, rd, err := s3.Open(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	if v := props[s3.PropVersion]; v != mixwFileVersion {
		return nil, s3.UnsupportedVersionError{
			Path: path, Version: v, Want: mixwFileVersion,
		}
	}
	doChecksum := checksumDeclared(props)
	rd.ResetChecksum()

	numStates, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	numStreams, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	numGaussiansPerState, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	numValues, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	if numValues != numStates*numStreams*numGaussiansPerState {
		return nil, NewModelMalformedErrorf(
			"%s declares %d values for %d states, %d streams, %d gaussians",
			path, numValues, numStates, numStreams, numGaussiansPerState)
	}

	p := pool.New[[]float32](name)
	p.SetFeature(pool.NumSenones, int(numStates))
	p.SetFeature(pool.NumStreams, int(numStreams))
	p.SetFeature(pool.NumGaussiansPerState, int(numGaussiansPerState))

	g := int(numGaussiansPerState)
	for i := 0; i < int(numStates); i++ {
		logMixtureWeights := make([]float32, g*int(numStreams))
		for j := 0; j < int(numStreams); j++ {
			streamWeights, err := rd.ReadFloatArray(g)
			if err != nil {
				return nil, err
			}
			logmath.Normalize(streamWeights)
			logmath.FloorData(streamWeights, floor)
			l.lm.LinearToLogInPlace(streamWeights)
			copy(logMixtureWeights[j*g:], streamWeights)
		}
		p.Put(i, logMixtureWeights)
	}

	if err := rd.ValidateChecksum(doChecksum); err != nil {
		return nil, err
	}

	l.metrics.ObserveModelLoad(name, start)
	return p, nil
}

// loadTransitionMatrices reads the tied transition matrices. Each read
// row gets its zeroes floored to a small value, is normalized and
// converted to the log domain; a terminal all-LogZero row is appended.
func (l *Loader) loadTransitionMatrices(name string,
) (*pool.Pool[[][]float32], error) {
	path := l.dataPath(name)
	start := time.Now()

	props, rd, err := s3.Open(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	if v := props[s3.PropVersion]; v != tmatFileVersion {
		return nil, s3.UnsupportedVersionError{
			Path: path, Version: v, Want: tmatFileVersion,
		}
	}
	doChecksum := checksumDeclared(props)
	rd.ResetChecksum()

	numMatrices, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	numRows, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	numStates, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	numValues, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	if numValues != numStates*numRows*numMatrices {
		return nil, NewModelMalformedErrorf(
			"%s declares %d values for %d matrices of %d x %d",
			path, numValues, numMatrices, numRows, numStates)
	}

	p := pool.New[[][]float32](name)

	for i := 0; i < int(numMatrices); i++ {
		matrix := make([][]float32, int(numStates))
		for j := 0; j < int(numRows); j++ {
			row, err := rd.ReadFloatArray(int(numStates))
			if err != nil {
				return nil, err
			}
			logmath.NonZeroFloor(row, 0)
			logmath.Normalize(row)
			l.lm.LinearToLogInPlace(row)
			matrix[j] = row
		}
		// terminal row: all zeroes in the linear domain
		terminal := make([]float32, int(numStates))
		l.lm.LinearToLogInPlace(terminal)
		matrix[int(numStates)-1] = terminal
		p.Put(i, matrix)
	}

	if err := rd.ValidateChecksum(doChecksum); err != nil {
		return nil, err
	}

	l.metrics.ObserveModelLoad(name, start)
	return p, nil
}

// loadTransformMatrix reads the optional front-end feature transform.
// A missing file yields a nil matrix; any other failure is fatal.
func (l *Loader) loadTransformMatrix(name string) ([][]float32, error) {
	path := l.dataPath(name)

	props, rd, err := s3.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.WithFields(logrus.Fields{
				"action": "acoustic_model_load",
				"file":   name,
			}).Debug("no feature transform present")
			return nil, nil
		}
		return nil, err
	}
	defer rd.Close()

	if v := props[s3.PropVersion]; v != transformFileVersion {
		return nil, s3.UnsupportedVersionError{
			Path: path, Version: v, Want: transformFileVersion,
		}
	}
	doChecksum := checksumDeclared(props)
	rd.ResetChecksum()

	// leading word is unused
	if _, err := rd.ReadInt(); err != nil {
		return nil, err
	}
	numRows, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	numValues, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	num, err := rd.ReadInt()
	if err != nil {
		return nil, err
	}
	if num != numRows*numValues {
		return nil, NewModelMalformedErrorf(
			"%s declares %d values for %d x %d", path, num, numRows, numValues)
	}

	result := make([][]float32, int(numRows))
	for i := range result {
		if result[i], err = rd.ReadFloatArray(int(numValues)); err != nil {
			return nil, err
		}
	}

	if err := rd.ValidateChecksum(doChecksum); err != nil {
		return nil, err
	}

	return result, nil
}

// createSenonePool pairs each senone's means and variances into
// mixture components and assembles the Gaussian mixtures.
func (l *Loader) createSenonePool(distFloor, varianceFloor float32,
) (*pool.Pool[acoustic.Senone], error) {
	numSenones := l.mixtureWeights.Feature(pool.NumSenones, 0)
	numStreams := l.mixtureWeights.Feature(pool.NumStreams, 0)
	g := l.mixtureWeights.Feature(pool.NumGaussiansPerState, 0)

	if g <= 0 {
		return nil, NewModelMalformedErrorf("no gaussians per senone")
	}
	if l.mixtureWeights.Len() != numSenones {
		return nil, NewModelMalformedErrorf(
			"%d mixture weights for %d senones",
			l.mixtureWeights.Len(), numSenones)
	}
	if l.means.Len() != numSenones*g || l.variances.Len() != numSenones*g {
		return nil, NewModelMalformedErrorf(
			"%d means and %d variances for %d senones with %d gaussians",
			l.means.Len(), l.variances.Len(), numSenones, g)
	}

	l.logger.WithFields(logrus.Fields{
		"action":      "acoustic_model_load",
		"senones":     numSenones,
		"gaussians":   g,
		"num_streams": numStreams,
	}).Debug("assembling senone pool")

	p := pool.New[acoustic.Senone]("senones")
	whichGaussian := 0
	for i := 0; i < numSenones; i++ {
		components := make([]*acoustic.MixtureComponent, g)
		for j := range components {
			components[j] = acoustic.NewMixtureComponent(l.lm,
				l.means.Get(whichGaussian), nil, nil,
				l.variances.Get(whichGaussian), nil, nil,
				distFloor, varianceFloor)
			whichGaussian++
		}
		p.Put(i, acoustic.NewGaussianMixture(l.lm, l.mixtureWeights.Get(i),
			components, i))
	}
	return p, nil
}

// loadModelProps reads feat.params, one "key value" pair per line.
func (l *Loader) loadModelProps(name string) (map[string]string, error) {
	path := l.dataPath(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	props := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tokens := strings.Fields(sc.Text())
		if len(tokens) < 2 {
			continue
		}
		props[tokens[0]] = tokens[1]
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return props, nil
}
