// Package telemetry synthesizes the interaction profile submitted with a
// challenge request. Every value is jittered around a single recorded
// human session so repeated attempts never send an identical payload.
package telemetry

import "math"

// DefaultVariation is the relative jitter applied to each baseline field.
const DefaultVariation = 0.1

// Source is the randomness a profile is drawn from. *math/rand.Rand
// satisfies it.
type Source interface {
	Float64() float64
}

// BehaviorProfile mirrors the telemetry object expected by the challenge
// service.
type BehaviorProfile struct {
	DwellMs          int     `json:"dwellMs"`
	Moves            int     `json:"moves"`
	VelocityVar      float64 `json:"velocityVar"`
	VelocityMedian   float64 `json:"velocityMedian"`
	VelocityAvg      float64 `json:"velocityAvg"`
	VelocityMin      float64 `json:"velocityMin"`
	VelocityMax      float64 `json:"velocityMax"`
	VelocityP25      float64 `json:"velocityP25"`
	VelocityP75      float64 `json:"velocityP75"`
	DirectionChanges int     `json:"directionChanges"`
	Keypresses       int     `json:"keypresses"`
	SpeedSamples     int     `json:"speedSamples"`
	MoveDensity      float64 `json:"moveDensity"`
}

// Baseline is the reference session every profile is derived from.
var Baseline = BehaviorProfile{
	DwellMs:          446629,
	Moves:            592,
	VelocityVar:      17.2058786473109,
	VelocityMedian:   1.455788671386738,
	VelocityAvg:      3.2309785421350123,
	VelocityMin:      0.0005871534893303571,
	VelocityMax:      18.108148421848494,
	VelocityP25:      0.42923229467905805,
	VelocityP75:      3.793246599138705,
	DirectionChanges: 31,
	Keypresses:       0,
	SpeedSamples:     592,
	MoveDensity:      754.4408783783783,
}

// Generate returns a fresh profile with each field scaled by an independent
// factor drawn uniformly from [1-variation, 1+variation]. Keypresses is
// always zero and SpeedSamples always equals Moves.
func Generate(rng Source, variation float64) BehaviorProfile {
	if variation < 0 {
		variation = 0
	}
	j := jitter{rng: rng, variation: variation}

	moves := j.whole(Baseline.Moves)
	return BehaviorProfile{
		DwellMs:          j.whole(Baseline.DwellMs),
		Moves:            moves,
		VelocityVar:      j.scale(Baseline.VelocityVar),
		VelocityMedian:   j.scale(Baseline.VelocityMedian),
		VelocityAvg:      j.scale(Baseline.VelocityAvg),
		VelocityMin:      j.scale(Baseline.VelocityMin),
		VelocityMax:      j.scale(Baseline.VelocityMax),
		VelocityP25:      j.scale(Baseline.VelocityP25),
		VelocityP75:      j.scale(Baseline.VelocityP75),
		DirectionChanges: j.whole(Baseline.DirectionChanges),
		Keypresses:       0,
		SpeedSamples:     moves,
		MoveDensity:      j.scale(Baseline.MoveDensity),
	}
}

type jitter struct {
	rng       Source
	variation float64
}

func (j jitter) scale(v float64) float64 {
	factor := 1 + (2*j.rng.Float64()-1)*j.variation
	return v * factor
}

// whole rounds a jittered integer field, keeping it inside the
// baseline envelope when the envelope contains an integer.
func (j jitter) whole(base int) int {
	v := math.Round(j.scale(float64(base)))

	lo := math.Ceil(float64(base) * (1 - j.variation))
	hi := math.Floor(float64(base) * (1 + j.variation))
	if lo <= hi {
		v = math.Min(math.Max(v, lo), hi)
	}
	return int(v)
}
