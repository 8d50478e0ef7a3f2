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

// Package testinghelpers writes small synthetic acoustic models for
// the loader and adaptation tests.
package testinghelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weaviate/tiedstate/adapters/repos/s3"
)

// Model describes a single-stream synthetic model. NumSenones is
// len(Means) / G.
type Model struct {
	G         int
	Means     [][]float32
	Variances [][]float32
	Checksum  bool
}

// TinyModel is the two-senone, one-gaussian, two-dimensional model
// used across the tests.
func TinyModel() Model {
	return Model{
		G:         1,
		Means:     [][]float32{{0, 0}, {2, 2}},
		Variances: [][]float32{{1, 1}, {1, 1}},
		Checksum:  true,
	}
}

func (m Model) NumSenones() int {
	return len(m.Means) / m.G
}

func (m Model) Dimension() int {
	return len(m.Means[0])
}

// Write materializes the model files in dir: means, variances,
// mixture_weights, transition_matrices, a single-SIL mdef and
// feat.params.
func Write(t *testing.T, dir string, m Model) {
	t.Helper()

	require.Equal(t, 0, len(m.Means)%m.G, "means must divide into senones")
	require.Equal(t, len(m.Means), len(m.Variances))

	WriteDensityFile(t, filepath.Join(dir, "means"), m.Means, m.G, m.Checksum)
	WriteDensityFile(t, filepath.Join(dir, "variances"), m.Variances, m.G,
		m.Checksum)
	WriteMixtureWeights(t, filepath.Join(dir, "mixture_weights"),
		m.NumSenones(), m.G, m.Checksum)
	WriteTransitions(t, filepath.Join(dir, "transition_matrices"),
		m.NumSenones(), m.Checksum)
	WriteMdef(t, filepath.Join(dir, "mdef"), SingleSilenceMdef(m.NumSenones()))
	WriteFeatParams(t, filepath.Join(dir, "feat.params"))
}

func header(checksum bool) []s3.HeaderProp {
	chk := "no"
	if checksum {
		chk = "yes"
	}
	return []s3.HeaderProp{
		{Name: s3.PropVersion, Value: "1.0"},
		{Name: s3.PropChecksum, Value: chk},
	}
}

// WriteDensityFile writes a means or variances file holding the given
// vectors, g per senone, one stream.
func WriteDensityFile(t *testing.T, path string, vectors [][]float32,
	g int, checksum bool,
) {
	t.Helper()

	numSenones := len(vectors) / g
	dim := len(vectors[0])

	wr, err := s3.Create(path, header(checksum))
	require.Nil(t, err)

	require.Nil(t, wr.WriteInt(int32(numSenones)))
	require.Nil(t, wr.WriteInt(1)) // streams
	require.Nil(t, wr.WriteInt(int32(g)))
	require.Nil(t, wr.WriteInt(int32(dim)))
	require.Nil(t, wr.WriteInt(int32(len(vectors)*dim)))
	for _, vector := range vectors {
		require.Nil(t, wr.WriteFloatArray(vector))
	}
	if checksum {
		require.Nil(t, wr.WriteChecksum())
	}
	require.Nil(t, wr.Close())
}

// WriteMixtureWeights writes uniform linear weights.
func WriteMixtureWeights(t *testing.T, path string, numSenones, g int,
	checksum bool,
) {
	t.Helper()

	wr, err := s3.Create(path, header(checksum))
	require.Nil(t, err)

	require.Nil(t, wr.WriteInt(int32(numSenones)))
	require.Nil(t, wr.WriteInt(1))
	require.Nil(t, wr.WriteInt(int32(g)))
	require.Nil(t, wr.WriteInt(int32(numSenones*g)))
	for i := 0; i < numSenones; i++ {
		for j := 0; j < g; j++ {
			require.Nil(t, wr.WriteFloat(1))
		}
	}
	if checksum {
		require.Nil(t, wr.WriteChecksum())
	}
	require.Nil(t, wr.Close())
}

// WriteTransitions writes one left-to-right matrix over numEmitting
// emitting states.
func WriteTransitions(t *testing.T, path string, numEmitting int,
	checksum bool,
) {
	t.Helper()

	numStates := numEmitting + 1

	wr, err := s3.Create(path, header(checksum))
	require.Nil(t, err)

	require.Nil(t, wr.WriteInt(1)) // matrices
	require.Nil(t, wr.WriteInt(int32(numEmitting)))
	require.Nil(t, wr.WriteInt(int32(numStates)))
	require.Nil(t, wr.WriteInt(int32(numEmitting*numStates)))
	for i := 0; i < numEmitting; i++ {
		row := make([]float32, numStates)
		row[i] = 0.5
		row[i+1] = 0.5
		require.Nil(t, wr.WriteFloatArray(row))
	}
	if checksum {
		require.Nil(t, wr.WriteChecksum())
	}
	require.Nil(t, wr.Close())
}

// SingleSilenceMdef declares one SIL phone walking through all
// senones.
func SingleSilenceMdef(numSenones int) string {
	var sb strings.Builder
	sb.WriteString("# synthetic model definition\n")
	sb.WriteString("0.3\n")
	sb.WriteString("1 n_base\n")
	sb.WriteString("0 n_tri\n")
	fmt.Fprintf(&sb, "%d n_state_map\n", numSenones+1)
	fmt.Fprintf(&sb, "%d n_tied_state\n", numSenones)
	fmt.Fprintf(&sb, "%d n_tied_ci_state\n", numSenones)
	sb.WriteString("1 n_tied_tmat\n")
	sb.WriteString("SIL - - - filler 0")
	for i := 0; i < numSenones; i++ {
		fmt.Fprintf(&sb, " %d", i)
	}
	sb.WriteString(" N\n")
	return sb.String()
}

func WriteMdef(t *testing.T, path, content string) {
	t.Helper()
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
}

func WriteFeatParams(t *testing.T, path string) {
	t.Helper()
	content := "-lowerf 130\n-upperf 6800\n-nfilt 40\n"
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
}
