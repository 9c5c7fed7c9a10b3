package learning

import "bytes"
import "math"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/cnntrain/layer"

func params(values ...float32) []*layer.Param {
	p := layer.NewParam("w", len(values))
	copy(p.Value, values)
	return []*layer.Param{p}
}

func TestAdamFirstStepMovesByLearningRate(t *testing.T) {
	ps := params(1, -1)
	a, err := NewAdam(ps, DefaultHyperParameters(0.001))
	require.NoError(t, err)

	ps[0].Grad[0] = 0.5
	ps[0].Grad[1] = -2
	a.Step()

	assert.InDelta(t, 0.999, ps[0].Value[0], 1e-6)
	assert.InDelta(t, -0.999, ps[0].Value[1], 1e-6)
	assert.Equal(t, uint64(1), a.Steps())

	a.ZeroGradients()
	assert.Equal(t, []float32{0, 0}, ps[0].Grad)
}

func TestAdamStateRoundTrip(t *testing.T) {
	pa, pb := params(1, 2, 3), params(1, 2, 3)
	a, err := NewAdam(pa, DefaultHyperParameters(0.01))
	require.NoError(t, err)
	b, err := NewAdam(pb, DefaultHyperParameters(0.5))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		copy(pa[0].Grad, []float32{0.1, -0.2, float32(i)})
		a.Step()
	}
	copy(pb[0].Value, pa[0].Value)

	state, err := a.ExportState()
	require.NoError(t, err)
	require.NoError(t, b.ImportState(state))
	assert.Equal(t, a.Steps(), b.Steps())
	assert.Equal(t, 0.01, b.HyperParameters().LearningRate)

	copy(pa[0].Grad, []float32{0.3, 0.3, -0.3})
	copy(pb[0].Grad, pa[0].Grad)
	a.Step()
	b.Step()
	assert.Equal(t, pa[0].Value, pb[0].Value)

	again, err := b.ExportState()
	require.NoError(t, err)
	exported, err := a.ExportState()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(exported, again))
}

func TestAdamImportRejectsMismatch(t *testing.T) {
	a, err := NewAdam(params(1, 2), DefaultHyperParameters(0.01))
	require.NoError(t, err)
	state, err := a.ExportState()
	require.NoError(t, err)

	b, err := NewAdam(params(1, 2, 3), DefaultHyperParameters(0.02))
	require.NoError(t, err)
	assert.Error(t, b.ImportState(state))
	assert.Error(t, b.ImportState(nil))
	assert.Error(t, b.ImportState(append(state, 0)))
	assert.Equal(t, 0.02, b.HyperParameters().LearningRate)
	assert.Equal(t, uint64(0), b.Steps())
}

func TestHyperParametersValidate(t *testing.T) {
	assert.NoError(t, DefaultHyperParameters(0.001).Validate())
	assert.Error(t, DefaultHyperParameters(0).Validate())
	assert.Error(t, DefaultHyperParameters(math.NaN()).Validate())
	h := DefaultHyperParameters(0.001)
	h.Beta2 = 1
	assert.Error(t, h.Validate())
	_, err := NewAdam(nil, HyperParameters{})
	assert.Error(t, err)
}
