// Package dynamics animates the probability amplitudes of the latest roll
// under a toy decoherence and oscillation model. It is a visual effect only:
// no amplitude produced here feeds back into a roll.
package dynamics

import (
	"math"
	"time"

	"quantumdie/internal/roll"
)

const (
	// DecayRate scales decoherence per elapsed millisecond.
	DecayRate = 0.0002
	// Omega is the oscillation frequency per elapsed millisecond.
	Omega = 0.002
)

// Params are the user-controlled animation settings.
type Params struct {
	Oscillation bool    // Hamiltonian dynamics between roll and face_down
	Decoherence float64 // 0..1
}

// Static reports whether the animation is a single unchanging frame.
func (p Params) Static() bool {
	return !p.Oscillation && p.Decoherence == 0
}

// Clamped returns p with Decoherence limited to [0,1].
func (p Params) Clamped() Params {
	p.Decoherence = math.Max(0, math.Min(1, p.Decoherence))
	return p
}

// Amplitudes returns the 8 probabilities at elapsed time t. Static params
// return a copy of the record's own wave function.
func Amplitudes(rec roll.Record, p Params, t time.Duration) []float64 {
	if p.Static() {
		return append([]float64(nil), rec.WaveFunction...)
	}

	ms := float64(t) / float64(time.Millisecond)
	decay := math.Exp(-p.Decoherence * ms * DecayRate)
	amps := make([]float64, roll.Faces)

	if p.Oscillation {
		amp1 := math.Cos(ms*Omega) * decay
		amp2 := -math.Sin(ms*Omega) * decay
		p1, p2 := amp1*amp1, amp2*amp2
		set(amps, rec.Roll, p1)
		set(amps, rec.FaceDown, p2)
		// A roll equal to face_down keeps the later assignment.
		if rec.Roll == rec.FaceDown {
			p1 = p2
		}
		leakage := 0.0
		if remaining := 1 - (p1 + p2); remaining > 0 {
			leakage = remaining / 6
		}
		for i := range amps {
			if i != rec.Roll && i != rec.FaceDown {
				amps[i] += leakage
			}
		}
		return amps
	}

	mainProb := decay * decay
	set(amps, rec.Roll, mainProb)
	leakage := 0.0
	if lost := 1 - mainProb; lost > 0 {
		leakage = lost / 7
	}
	for i := range amps {
		if i != rec.Roll {
			amps[i] += leakage
		}
	}
	return amps
}

func set(amps []float64, i int, v float64) {
	if i >= 0 && i < len(amps) {
		amps[i] = v
	}
}
