package health

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	FieldWeight                = "weight"
	FieldHeight                = "height"
	FieldBloodPressureSystolic = "blood_pressure_systolic"
	FieldHeartRate             = "heart_rate"
	FieldGlucoseLevel          = "glucose_level"
)

// recognizedFields is ordered so validation failures are reported
// deterministically.
var recognizedFields = []string{
	FieldWeight,
	FieldHeight,
	FieldBloodPressureSystolic,
	FieldHeartRate,
	FieldGlucoseLevel,
}

// Metrics is a snapshot of user-submitted vitals. Every field is optional.
// Weight is in kilograms and height in centimetres.
type Metrics struct {
	Weight                *float64 `json:"weight,omitempty"`
	Height                *float64 `json:"height,omitempty"`
	BloodPressureSystolic *float64 `json:"blood_pressure_systolic,omitempty"`
	HeartRate             *float64 `json:"heart_rate,omitempty"`
	GlucoseLevel          *float64 `json:"glucose_level,omitempty"`
}

// Record is the stored health record of one user.
type Record struct {
	Metrics
	RiskLevel   Tier       `json:"risk_level,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

func (r Record) IsEmpty() bool {
	return r.Metrics.IsEmpty() && r.RiskLevel == "" && r.LastUpdated == nil
}

func (m Metrics) IsEmpty() bool {
	return m.Weight == nil &&
		m.Height == nil &&
		m.BloodPressureSystolic == nil &&
		m.HeartRate == nil &&
		m.GlucoseLevel == nil
}

// BMI reports body-mass index when both weight and height are present.
func (m Metrics) BMI() (float64, bool) {
	if m.Weight == nil || m.Height == nil || *m.Height <= 0 {
		return 0, false
	}
	meters := *m.Height / 100
	return *m.Weight / (meters * meters), true
}

// Merge overwrites the fields that are set in update and keeps the rest.
func (m Metrics) Merge(update Metrics) Metrics {
	merged := m
	if update.Weight != nil {
		merged.Weight = update.Weight
	}
	if update.Height != nil {
		merged.Height = update.Height
	}
	if update.BloodPressureSystolic != nil {
		merged.BloodPressureSystolic = update.BloodPressureSystolic
	}
	if update.HeartRate != nil {
		merged.HeartRate = update.HeartRate
	}
	if update.GlucoseLevel != nil {
		merged.GlucoseLevel = update.GlucoseLevel
	}
	return merged
}

func (m *Metrics) set(field string, value float64) {
	v := value
	switch field {
	case FieldWeight:
		m.Weight = &v
	case FieldHeight:
		m.Height = &v
	case FieldBloodPressureSystolic:
		m.BloodPressureSystolic = &v
	case FieldHeartRate:
		m.HeartRate = &v
	case FieldGlucoseLevel:
		m.GlucoseLevel = &v
	}
}

// ParseMetrics validates a raw JSON object into Metrics. Unknown keys are
// ignored. Recognized keys must hold a positive finite number or a numeric
// string.
func ParseMetrics(raw map[string]any) (Metrics, error) {
	if len(raw) == 0 {
		return Metrics{}, &ValidationError{Reason: "No data provided"}
	}

	var metrics Metrics
	for _, field := range recognizedFields {
		value, ok := raw[field]
		if !ok {
			continue
		}
		parsed, err := toMetricValue(value)
		if err != nil {
			return Metrics{}, &ValidationError{Field: field, Reason: err.Error()}
		}
		metrics.set(field, parsed)
	}
	if metrics.IsEmpty() {
		return Metrics{}, &ValidationError{
			Reason: "No recognized health metrics provided; expected one of " + strings.Join(recognizedFields, ", "),
		}
	}
	return metrics, nil
}

func toMetricValue(value any) (float64, error) {
	var parsed float64
	switch v := value.(type) {
	case float64:
		parsed = v
	case float32:
		parsed = float64(v)
	case int:
		parsed = float64(v)
	case int64:
		parsed = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		parsed = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		parsed = f
	default:
		return 0, fmt.Errorf("must be a number")
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, fmt.Errorf("must be a finite number")
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("must be greater than zero")
	}
	return parsed, nil
}
