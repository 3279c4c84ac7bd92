package assistant

import (
	"context"
	"strings"
)

// MockGenerator answers locally without any network call. Used for
// AI_PROVIDER=mock and in tests.
type MockGenerator struct{}

func (MockGenerator) Generate(_ context.Context, prompt Prompt) (string, error) {
	question := strings.TrimSpace(prompt.Message)
	if question == "" {
		question = "No question provided."
	}
	lowered := strings.ToLower(question)

	answer := "Mock response: " + question
	switch {
	case strings.Contains(lowered, "sugar") || strings.Contains(lowered, "glucose"):
		answer = "Mock response: choose low glycemic index foods and take a short walk after meals. Please consult a healthcare professional about persistent high readings."
	case strings.Contains(lowered, "blood pressure"):
		answer = "Mock response: reduce sodium, sleep 7-8 hours and practice stress management. Please consult a healthcare professional if readings stay high."
	case strings.Contains(lowered, "sleep"):
		answer = "Mock response: keep a consistent bedtime and limit screens an hour before sleep."
	}
	if prompt.Context != "" && prompt.Context != noHealthDataContext && strings.Contains(lowered, "my data") {
		answer += " (based on your saved health data)"
	}
	return answer, nil
}
