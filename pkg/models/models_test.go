package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStratum(t *testing.T) {
	tests := []struct {
		in   string
		want Stratum
	}{
		{"", StratumSignal},
		{"signal", StratumSignal},
		{"myth", StratumMyth},
		{" Reflection ", StratumReflection},
		{"legend", StratumSignal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStratum(tt.in))
		})
	}
}

func TestParseStratum_RejectsUnknown(t *testing.T) {
	_, err := ParseStratum("legend")
	require.ErrorIs(t, err, ErrInvalidStratum)
}

func TestParseSeriesStatus(t *testing.T) {
	st, err := ParseSeriesStatus("published")
	require.NoError(t, err)
	assert.Equal(t, SeriesPublished, st)

	st, err = ParseSeriesStatus("")
	require.NoError(t, err)
	assert.Equal(t, SeriesDraft, st)

	_, err = ParseSeriesStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidSeriesStatus)
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0.0, ClampProgress(-10))
	assert.Equal(t, 100.0, ClampProgress(150))
	assert.Equal(t, 42.5, ClampProgress(42.5))
	assert.Equal(t, 0.0, ClampProgress(math.NaN()))
}

func TestSignal_InSeries(t *testing.T) {
	empty := ""
	id := "s1"
	assert.False(t, Signal{}.InSeries())
	assert.False(t, Signal{SeriesID: &empty}.InSeries())
	assert.True(t, Signal{SeriesID: &id}.InSeries())
}
