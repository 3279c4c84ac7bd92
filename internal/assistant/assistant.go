package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"healthmate/backend/internal/health"
	"healthmate/backend/internal/logger"
	"healthmate/backend/internal/store"
)

const (
	DefaultHistoryLimit = 50

	persona = "You are a healthcare assistant AI. Provide helpful, accurate health advice while always recommending users consult healthcare professionals for serious concerns. Be supportive, informative, and encouraging about healthy lifestyle choices."

	noHealthDataContext = "No health data available"
)

type ChatEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
}

// HealthRecords reads the caller's latest health record.
type HealthRecords interface {
	Record(ctx context.Context, userID string) (health.Record, bool, error)
}

type Assistant struct {
	generator    Generator
	records      HealthRecords
	store        store.DocumentStore
	historyLimit int
	log          *logger.Logger
	now          func() time.Time
}

func New(generator Generator, records HealthRecords, docs store.DocumentStore, historyLimit int, log *logger.Logger) *Assistant {
	if log == nil {
		log = logger.Nop()
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Assistant{
		generator:    generator,
		records:      records,
		store:        docs,
		historyLimit: historyLimit,
		log:          log.With("service", "ConversationAssistant"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Respond answers message for userID and records the exchange. Generation
// failures become fallback text, so the only error returned is a
// ValidationError for an empty message.
func (a *Assistant) Respond(ctx context.Context, userID, message string) (ChatEntry, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatEntry{}, &health.ValidationError{Field: "message", Reason: "must not be empty"}
	}

	prompt := Prompt{
		Persona: persona,
		Context: a.healthContext(ctx, userID),
		Message: message,
	}

	started := time.Now()
	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		text = a.fallback(userID, err)
	} else if strings.TrimSpace(text) == "" {
		a.log.Warn("llm response had no text", "user_id", userID)
		text = FallbackEmpty
	} else {
		a.log.Debug("llm response received", "user_id", userID, "duration_ms", time.Since(started).Milliseconds())
	}

	entry := ChatEntry{
		Timestamp:   a.now(),
		UserMessage: message,
		AIResponse:  text,
	}
	if err := a.store.Append(ctx, store.CollectionChatHistory, userID, entry, a.historyLimit); err != nil {
		a.log.Error("failed to save chat history", "user_id", userID, "err", err)
	}
	return entry, nil
}

func (a *Assistant) fallback(userID string, err error) string {
	var failure *Failure
	if !errors.As(err, &failure) {
		failure = &Failure{Kind: FailureUnexpected, Err: err}
	}
	a.log.Error(
		"llm request failed",
		"user_id", userID,
		"kind", failure.Kind,
		"url", failure.URL,
		"status", failure.Status,
		"body", failure.Body,
		"err", failure.Err,
	)
	return failure.FallbackText()
}

func (a *Assistant) healthContext(ctx context.Context, userID string) string {
	if a.records == nil {
		return noHealthDataContext
	}
	record, found, err := a.records.Record(ctx, userID)
	if err != nil {
		a.log.Warn("failed to load health record for chat context", "user_id", userID, "err", err)
		return noHealthDataContext
	}
	if !found || record.IsEmpty() {
		return noHealthDataContext
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return noHealthDataContext
	}
	return "User's health data: " + string(encoded)
}

// History returns the caller's chat entries, oldest first.
func (a *Assistant) History(ctx context.Context, userID string) ([]ChatEntry, error) {
	raw, err := a.store.Entries(ctx, store.CollectionChatHistory, userID)
	if err != nil {
		return nil, err
	}
	entries := make([]ChatEntry, 0, len(raw))
	for idx, item := range raw {
		var entry ChatEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			a.log.Error("skipping corrupted chat entry", "user_id", userID, "index", idx, "err", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
