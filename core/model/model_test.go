package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManagerLifecycle(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	s.SetDimensions(63, 1200)
	s.SetFitted()
	assert.True(t, s.IsFitted())
	assert.Equal(t, 63, s.NFeatures)
	assert.Equal(t, 1200, s.NSamples)

	s.Reset()
	assert.False(t, s.IsFitted())
	assert.Equal(t, 0, s.NFeatures)
}

func TestStateManagerNilReceiver(t *testing.T) {
	var s *StateManager
	assert.False(t, s.IsFitted())
}

type fakeEstimator struct {
	State *StateManager
	Coefs []float64
}

func TestSaveLoadRoundTrip(t *testing.T) {
	in := &fakeEstimator{State: NewStateManager(), Coefs: []float64{1.5, -2, 0.25}}
	in.State.SetDimensions(3, 10)
	in.State.SetFitted()

	path := filepath.Join(t.TempDir(), "estimator.gob")
	require.NoError(t, SaveModel(in, path))

	var out fakeEstimator
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in.Coefs, out.Coefs)
	assert.True(t, out.State.IsFitted())
	assert.Equal(t, 3, out.State.NFeatures)
}

func TestSaveLoadWriterReader(t *testing.T) {
	in := &fakeEstimator{State: NewStateManager(), Coefs: []float64{4, 5}}
	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(in, &buf))

	var out fakeEstimator
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.Equal(t, in.Coefs, out.Coefs)
}

func TestLoadMissingFile(t *testing.T) {
	var out fakeEstimator
	err := LoadModel(&out, filepath.Join(t.TempDir(), "absent.gob"))
	assert.Error(t, err)
}
