package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapToRange(t *testing.T) {
	assert.InDelta(t, 0.5, MapToRange(0, -1, 1, 0, 1), 1e-9)
	assert.InDelta(t, 1.0, MapToRange(3, -1, 1, 0, 1), 1e-9)
	assert.InDelta(t, 0.0, MapToRange(-3, -1, 1, 0, 1), 1e-9)
	assert.InDelta(t, 1500, MapToRange(0, -1, 1, 1000, 2000), 1e-9)
}

func TestSimDriverClampsAndRecords(t *testing.T) {
	drv := NewSimDriver()
	require.NoError(t, drv.Init())

	require.NoError(t, drv.SetMany([]Output{
		Power("intake", 0.5),
		Power("intake", 1.7),
		{Name: "drive_left", Value: -14, Min: -12, Max: 12},
	}))

	assert.InDelta(t, 1.0, drv.Value("intake"), 1e-9)
	assert.Equal(t, []float64{0.5, 1.0}, drv.History("intake"))
	assert.InDelta(t, -12.0, drv.Value("drive_left"), 1e-9)

	assert.Error(t, drv.Set(Output{Name: "bad", Min: 1, Max: 1}))

	require.NoError(t, drv.Stop())
	assert.True(t, drv.Stopped())
}

func TestSimSwitch(t *testing.T) {
	sw := &SimSwitch{}
	require.NoError(t, sw.Set(true))
	assert.True(t, sw.On())
	require.NoError(t, sw.Set(false))
	assert.False(t, sw.On())
	assert.Equal(t, 2, sw.Sets())
}
