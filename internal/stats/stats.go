// Package stats computes descriptive statistics over a roll history.
package stats

import (
	"math"

	"quantumdie/internal/roll"
)

// Bucket is one bar of the outcome distribution.
type Bucket struct {
	Value      int
	Count      int
	Percentage float64 // 0..100
}

// Summary describes a history. The zero value describes an empty one.
type Summary struct {
	Count        int
	Mean         float64
	StdDev       float64 // population standard deviation
	Distribution [roll.Faces]Bucket
	EvenCount    int
	QECCount     int // records carrying an error-correction block
	QECErrors    int // of those, how many reported an injected error
}

// OddCount is the number of odd outcomes.
func (s Summary) OddCount() int {
	return s.Count - s.EvenCount
}

// Compute folds the history into a Summary. Roll values outside [0,7] are
// counted in the moments but not in the distribution.
func Compute(history []roll.Record) Summary {
	var s Summary
	for v := range s.Distribution {
		s.Distribution[v].Value = v
	}
	if len(history) == 0 {
		return s
	}

	s.Count = len(history)
	sum := 0.0
	for _, rec := range history {
		sum += float64(rec.Roll)
		if rec.Roll%2 == 0 {
			s.EvenCount++
		}
		if rec.Roll >= 0 && rec.Roll < roll.Faces {
			s.Distribution[rec.Roll].Count++
		}
		if rec.QEC != nil {
			s.QECCount++
			if rec.QEC.ErrorOccurred {
				s.QECErrors++
			}
		}
	}
	s.Mean = sum / float64(s.Count)

	variance := 0.0
	for _, rec := range history {
		d := float64(rec.Roll) - s.Mean
		variance += d * d
	}
	s.StdDev = math.Sqrt(variance / float64(s.Count))

	for v := range s.Distribution {
		s.Distribution[v].Percentage = float64(s.Distribution[v].Count) / float64(s.Count) * 100
	}
	return s
}
