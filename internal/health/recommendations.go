package health

import "time"

type Recommendations struct {
	Diet      []string `json:"diet"`
	Exercise  []string `json:"exercise"`
	Lifestyle []string `json:"lifestyle"`
}

// RecommendationSet is the stored form, one per user.
type RecommendationSet struct {
	Recommendations Recommendations `json:"recommendations"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

type adviceBlock struct {
	name      string
	applies   func(Metrics) bool
	diet      []string
	exercise  []string
	lifestyle []string
}

// adviceBlocks are applied in declaration order.
var adviceBlocks = []adviceBlock{
	{
		name: "weight_high",
		applies: func(m Metrics) bool {
			bmi, ok := m.BMI()
			return ok && bmi > 25
		},
		diet: []string{
			"Reduce caloric intake by 300-500 calories per day",
			"Increase fiber intake with whole grains and vegetables",
			"Limit processed foods and added sugars",
		},
		exercise: []string{
			"30 minutes of cardio exercise 5 times per week",
			"Include strength training 2-3 times per week",
		},
	},
	{
		name: "weight_low",
		applies: func(m Metrics) bool {
			bmi, ok := m.BMI()
			return ok && bmi < 18.5
		},
		diet: []string{
			"Increase healthy caloric intake",
			"Include protein-rich foods in every meal",
			"Add healthy fats like nuts and avocados",
		},
	},
	{
		name: "blood_pressure",
		applies: func(m Metrics) bool {
			return m.BloodPressureSystolic != nil && *m.BloodPressureSystolic > 130
		},
		diet: []string{
			"Reduce sodium intake to less than 2300mg per day",
			"Increase potassium-rich foods like bananas and spinach",
		},
		lifestyle: []string{
			"Practice stress management techniques",
			"Ensure 7-8 hours of quality sleep",
		},
	},
	{
		name: "glucose",
		applies: func(m Metrics) bool {
			return m.GlucoseLevel != nil && *m.GlucoseLevel > 100
		},
		diet: []string{
			"Choose low glycemic index foods",
			"Limit refined carbohydrates and sugary drinks",
			"Include cinnamon and other blood sugar-friendly spices",
		},
		exercise: []string{
			"Regular post-meal walks",
			"Include resistance training to improve insulin sensitivity",
		},
	},
}

// Generate composes the advice blocks whose condition holds for m.
func Generate(m Metrics) Recommendations {
	recs := Recommendations{
		Diet:      []string{},
		Exercise:  []string{},
		Lifestyle: []string{},
	}
	for _, block := range adviceBlocks {
		if !block.applies(m) {
			continue
		}
		recs.Diet = append(recs.Diet, block.diet...)
		recs.Exercise = append(recs.Exercise, block.exercise...)
		recs.Lifestyle = append(recs.Lifestyle, block.lifestyle...)
	}
	return recs
}

// AppliedAdvice names the advice blocks that fire for m, in order.
func AppliedAdvice(m Metrics) []string {
	names := make([]string, 0, len(adviceBlocks))
	for _, block := range adviceBlocks {
		if block.applies(m) {
			names = append(names, block.name)
		}
	}
	return names
}
