package payment

import "math"

// ToMinorUnit converts a major-unit amount (naira) to the gateway's minor unit (kobo).
func ToMinorUnit(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnit(amount int64) float64 {
	return float64(amount) / 100
}
