package stats

import (
	"testing"

	"quantumdie/internal/roll"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.Mean)
	assert.Zero(t, s.StdDev)
	for v, b := range s.Distribution {
		assert.Equal(t, v, b.Value)
		assert.Zero(t, b.Count)
	}
}

func TestCompute_Extremes(t *testing.T) {
	s := Compute([]roll.Record{{Roll: 0}, {Roll: 7}})
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 3.5, s.Mean, 1e-12)
	assert.InDelta(t, 3.5, s.StdDev, 1e-12)
	assert.Equal(t, 1, s.EvenCount)
	assert.Equal(t, 1, s.OddCount())
	assert.InDelta(t, 50.0, s.Distribution[0].Percentage, 1e-12)
	assert.InDelta(t, 50.0, s.Distribution[7].Percentage, 1e-12)
	assert.Zero(t, s.Distribution[3].Count)
}

func TestCompute_Distribution(t *testing.T) {
	history := []roll.Record{
		roll.Collapsed(2), roll.Collapsed(2), roll.Collapsed(2), roll.Collapsed(5),
	}
	s := Compute(history)

	assert.Equal(t, 3, s.Distribution[2].Count)
	assert.InDelta(t, 75.0, s.Distribution[2].Percentage, 1e-12)
	assert.InDelta(t, 2.75, s.Mean, 1e-12)
	// population variance: (3*0.75^2 + 2.25^2)/4 = 1.6875
	assert.InDelta(t, 1.299038, s.StdDev, 1e-6)

	total := 0.0
	for _, b := range s.Distribution {
		total += b.Percentage
	}
	assert.InDelta(t, 100.0, total, 1e-9)
}

func TestCompute_QECCounters(t *testing.T) {
	clean := roll.Collapsed(4)
	clean.QEC = &roll.QEC{PhysicalRolls: []int{4, 4, 4}, WasCorrected: true}
	noisy := roll.Collapsed(1)
	noisy.QEC = &roll.QEC{PhysicalRolls: []int{1, 6, 1}, ErrorOccurred: true, WasCorrected: true}

	s := Compute([]roll.Record{clean, noisy, roll.Collapsed(0)})
	assert.Equal(t, 2, s.QECCount)
	assert.Equal(t, 1, s.QECErrors)
}

func TestCompute_OutOfRangeIgnoredInDistribution(t *testing.T) {
	s := Compute([]roll.Record{{Roll: 9}, {Roll: 1}})
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 1, s.Distribution[1].Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
}
