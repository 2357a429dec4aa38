package service

// AcceptThreshold is the minimum score for a knowledge-base or cache match to be used
const AcceptThreshold = 0.6

// acceptScore reports whether a match score clears AcceptThreshold
func acceptScore(score float64) bool {
	return score >= AcceptThreshold
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
