// Package fingerprint generates the per-attempt device identifier sent
// alongside challenge telemetry.
package fingerprint

// Prefix starts every generated fingerprint.
const Prefix = "-"

const (
	hexDigits = "0123456789abcdef"
	length    = 8
)

// Source is the randomness a fingerprint is drawn from. *math/rand.Rand
// satisfies it.
type Source interface {
	Intn(n int) int
}

// Generate returns Prefix followed by 8 random lowercase hex characters.
func Generate(rng Source) string {
	b := make([]byte, 0, len(Prefix)+length)
	b = append(b, Prefix...)
	for i := 0; i < length; i++ {
		b = append(b, hexDigits[rng.Intn(len(hexDigits))])
	}
	return string(b)
}
