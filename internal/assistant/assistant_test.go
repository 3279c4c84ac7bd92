package assistant

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"healthmate/backend/internal/health"
	"healthmate/backend/internal/store"
)

type countingGenerator struct {
	calls   int32
	prompts []Prompt
	reply   func(call int32) (string, error)
}

func (g *countingGenerator) Generate(_ context.Context, prompt Prompt) (string, error) {
	call := atomic.AddInt32(&g.calls, 1)
	g.prompts = append(g.prompts, prompt)
	if g.reply == nil {
		return fmt.Sprintf("reply %d", call), nil
	}
	return g.reply(call)
}

type staticRecords struct {
	record health.Record
	found  bool
}

func (s staticRecords) Record(context.Context, string) (health.Record, bool, error) {
	return s.record, s.found, nil
}

func newTestStore(t *testing.T) store.DocumentStore {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return fs
}

func TestRespondRejectsEmptyMessage(t *testing.T) {
	t.Parallel()
	gen := &countingGenerator{}
	docs := newTestStore(t)
	a := New(gen, nil, docs, DefaultHistoryLimit, nil)

	for _, message := range []string{"", "   \n\t"} {
		_, err := a.Respond(context.Background(), "user-1", message)
		if !health.IsValidationError(err) {
			t.Fatalf("expected validation error for %q, got %v", message, err)
		}
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generator calls, got %d", gen.calls)
	}
	history, err := a.History(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history))
	}
}

func TestRespondKeepsMostRecentFiftyEntries(t *testing.T) {
	t.Parallel()
	gen := &countingGenerator{}
	a := New(gen, nil, newTestStore(t), DefaultHistoryLimit, nil)
	ctx := context.Background()

	for i := 1; i <= 55; i++ {
		if _, err := a.Respond(ctx, "user-2", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("respond %d: %v", i, err)
		}
	}

	history, err := a.History(ctx, "user-2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(history))
	}
	for idx, entry := range history {
		want := idx + 6
		if entry.UserMessage != fmt.Sprintf("message %d", want) || entry.AIResponse != fmt.Sprintf("reply %d", want) {
			t.Fatalf("entry %d: unexpected %+v", idx, entry)
		}
	}
}

func TestRespondRecordsFallbacksForFailedCalls(t *testing.T) {
	t.Parallel()

	refused := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	refusedURL := refused.URL
	refused.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	ctx := context.Background()

	connA := New(newTestOllamaClient(refusedURL, 2*time.Second), nil, newTestStore(t), DefaultHistoryLimit, nil)
	connEntry, err := connA.Respond(ctx, "user-3", "Is my heart rate okay?")
	if err != nil {
		t.Fatalf("respond with refused connection: %v", err)
	}

	statusA := New(newTestOllamaClient(failing.URL, 2*time.Second), nil, newTestStore(t), DefaultHistoryLimit, nil)
	statusEntry, err := statusA.Respond(ctx, "user-3", "Is my heart rate okay?")
	if err != nil {
		t.Fatalf("respond with failing server: %v", err)
	}

	if connEntry.AIResponse != FallbackConnection {
		t.Fatalf("unexpected connection fallback: %q", connEntry.AIResponse)
	}
	if statusEntry.AIResponse != "Chatbot error: HTTP 500. Please try again." {
		t.Fatalf("unexpected status fallback: %q", statusEntry.AIResponse)
	}
	if connEntry.AIResponse == statusEntry.AIResponse {
		t.Fatalf("expected distinct fallbacks")
	}

	for name, a := range map[string]*Assistant{"connection": connA, "status": statusA} {
		history, err := a.History(ctx, "user-3")
		if err != nil {
			t.Fatalf("%s history: %v", name, err)
		}
		if len(history) != 1 {
			t.Fatalf("%s: expected exactly one entry, got %d", name, len(history))
		}
	}
}

func TestRespondUsesFallbackForEmptyReply(t *testing.T) {
	t.Parallel()
	gen := &countingGenerator{reply: func(int32) (string, error) { return "", nil }}
	a := New(gen, nil, newTestStore(t), DefaultHistoryLimit, nil)

	entry, err := a.Respond(context.Background(), "user-4", "hello")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if entry.AIResponse != FallbackEmpty {
		t.Fatalf("unexpected response: %q", entry.AIResponse)
	}
}

func TestRespondTreatsUnknownErrorsAsUnexpected(t *testing.T) {
	t.Parallel()
	gen := &countingGenerator{reply: func(int32) (string, error) { return "", fmt.Errorf("boom") }}
	a := New(gen, nil, newTestStore(t), DefaultHistoryLimit, nil)

	entry, err := a.Respond(context.Background(), "user-5", "hello")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if entry.AIResponse != FallbackUnexpected {
		t.Fatalf("unexpected response: %q", entry.AIResponse)
	}
}

func TestRespondBuildsHealthContext(t *testing.T) {
	t.Parallel()
	glucose := 110.0
	records := staticRecords{
		record: health.Record{Metrics: health.Metrics{GlucoseLevel: &glucose}, RiskLevel: health.TierLow},
		found:  true,
	}
	gen := &countingGenerator{}
	a := New(gen, records, newTestStore(t), DefaultHistoryLimit, nil)

	if _, err := a.Respond(context.Background(), "user-6", "  What should I eat?  "); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if prompt.Message != "What should I eat?" {
		t.Fatalf("unexpected message: %q", prompt.Message)
	}
	if !strings.HasPrefix(prompt.Context, "User's health data: {") || !strings.Contains(prompt.Context, `"glucose_level":110`) {
		t.Fatalf("unexpected context: %q", prompt.Context)
	}

	empty := New(gen, staticRecords{}, newTestStore(t), DefaultHistoryLimit, nil)
	if _, err := empty.Respond(context.Background(), "user-7", "hi"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got := gen.prompts[1].Context; got != "No health data available" {
		t.Fatalf("unexpected empty context: %q", got)
	}
}

func TestMockGeneratorAnswersLocally(t *testing.T) {
	t.Parallel()
	text, err := MockGenerator{}.Generate(context.Background(), Prompt{Message: "My blood sugar is high"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(text, "glycemic") {
		t.Fatalf("unexpected mock reply: %q", text)
	}
}
