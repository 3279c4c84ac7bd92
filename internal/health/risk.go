package health

type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Score adds up the risk points of every present metric. Each metric
// contributes from at most one bracket, highest bracket first.
func Score(m Metrics) int {
	score := 0

	if bmi, ok := m.BMI(); ok {
		if bmi < 18.5 || bmi > 30 {
			score += 2
		} else if bmi > 25 {
			score++
		}
	}

	if m.BloodPressureSystolic != nil {
		systolic := *m.BloodPressureSystolic
		switch {
		case systolic > 140:
			score += 3
		case systolic > 130:
			score += 2
		case systolic > 120:
			score++
		}
	}

	if m.HeartRate != nil {
		if rate := *m.HeartRate; rate > 100 || rate < 60 {
			score++
		}
	}

	if m.GlucoseLevel != nil {
		glucose := *m.GlucoseLevel
		switch {
		case glucose > 140:
			score += 3
		case glucose > 126:
			score += 2
		case glucose > 100:
			score++
		}
	}

	return score
}

func TierForScore(score int) Tier {
	switch {
	case score >= 6:
		return TierHigh
	case score >= 3:
		return TierMedium
	default:
		return TierLow
	}
}

func Evaluate(m Metrics) Tier {
	return TierForScore(Score(m))
}
