package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"healthmate/backend/internal/config"
	"healthmate/backend/internal/db"
)

type testDoc struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type testEntry struct {
	Seq int `json:"seq"`
}

// runDocumentStoreContract exercises behaviour every backend must share.
func runDocumentStoreContract(t *testing.T, s DocumentStore) {
	t.Helper()
	ctx := context.Background()
	collection := "contract_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")

	var missing testDoc
	found, err := s.Get(ctx, collection, "nobody", &missing)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if found {
		t.Fatalf("expected missing document to be absent")
	}

	if err := s.Put(ctx, collection, "a", testDoc{Name: "first", Value: 1}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := s.Put(ctx, collection, "a", testDoc{Name: "second", Value: 2}); err != nil {
		t.Fatalf("overwrite a: %v", err)
	}
	if err := s.Put(ctx, collection, "b", testDoc{Name: "other", Value: 3}); err != nil {
		t.Fatalf("put b: %v", err)
	}

	var got testDoc
	found, err = s.Get(ctx, collection, "a", &got)
	if err != nil || !found {
		t.Fatalf("get a: found=%v err=%v", found, err)
	}
	if got.Name != "second" || got.Value != 2 {
		t.Fatalf("expected overwritten document, got %+v", got)
	}

	all, err := s.All(ctx, collection)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(all))
	}

	for i := 1; i <= 7; i++ {
		if err := s.Append(ctx, collection+"_log", "a", testEntry{Seq: i}, 5); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	entries, err := s.Entries(ctx, collection+"_log", "a")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries after cap, got %d", len(entries))
	}
	for idx, raw := range entries {
		var entry testEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			t.Fatalf("decode entry %d: %v", idx, err)
		}
		if entry.Seq != idx+3 {
			t.Fatalf("expected entry %d to have seq %d, got %d", idx, idx+3, entry.Seq)
		}
	}

	none, err := s.Entries(ctx, collection+"_log", "nobody")
	if err != nil {
		t.Fatalf("entries for missing key: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no entries, got %d", len(none))
	}
}

func TestFileStoreContract(t *testing.T) {
	t.Parallel()
	s, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	runDocumentStoreContract(t, s)
}

func TestFileStoreTreatsCorruptedCollectionAsEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "health_data.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupted file: %v", err)
	}
	s, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	var doc testDoc
	found, err := s.Get(context.Background(), CollectionHealthData, "u1", &doc)
	if err != nil {
		t.Fatalf("expected corruption to be tolerated, got %v", err)
	}
	if found {
		t.Fatalf("expected corrupted collection to read as empty")
	}

	if err := s.Put(context.Background(), CollectionHealthData, "u1", testDoc{Name: "fresh"}); err != nil {
		t.Fatalf("put after corruption: %v", err)
	}
	found, err = s.Get(context.Background(), CollectionHealthData, "u1", &doc)
	if err != nil || !found || doc.Name != "fresh" {
		t.Fatalf("expected fresh document after rewrite, found=%v err=%v doc=%+v", found, err, doc)
	}
}

func TestFileStoreTreatsUndecodableDocumentAsAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users.json"), []byte(`{"u1": "just a string"}`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	var doc testDoc
	found, err := s.Get(context.Background(), CollectionUsers, "u1", &doc)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatalf("expected undecodable document to be reported absent")
	}
}

func TestFileStoreWritesIndentedCollectionFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.Put(context.Background(), CollectionRecommendations, "u1", map[string]any{"k": "v"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "recommendations.json"))
	if err != nil {
		t.Fatalf("read collection file: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"u1\"") {
		t.Fatalf("expected indented JSON, got %s", data)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("expected no temp files left behind, got %v", leftovers)
	}
}

func TestFileStoreReportsWriteFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	// A directory where the collection file should be makes the rename fail.
	if err := os.Mkdir(filepath.Join(dir, "users.json"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = s.Put(context.Background(), CollectionUsers, "u1", testDoc{Name: "x"})
	if err == nil {
		t.Fatalf("expected write failure")
	}
	if !IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %T %v", err, err)
	}
}

func TestEncodeDocumentRejectsInvalidRawJSON(t *testing.T) {
	t.Parallel()
	if _, err := encodeDocument(json.RawMessage("{broken")); err == nil {
		t.Fatalf("expected invalid raw JSON to fail")
	}
}

func TestPostgresStoreContract(t *testing.T) {
	rawURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if rawURL == "" {
		t.Skip("integration tests skipped: TEST_DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, rawURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("ensure schema: %v", err)
	}
	if err := ValidateSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("validate schema: %v", err)
	}
	s := NewPostgresStore(pool, nil)
	defer s.Close()
	runDocumentStoreContract(t, s)
}

func TestRedisStoreContract(t *testing.T) {
	rawURL := strings.TrimSpace(os.Getenv("TEST_REDIS_URL"))
	if rawURL == "" {
		t.Skip("integration tests skipped: TEST_REDIS_URL is not set")
	}
	s, err := NewRedisStore(context.Background(), rawURL, nil)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	s.prefix = fmt.Sprintf("healthmate_test_%d", time.Now().UnixNano())
	defer s.Close()
	runDocumentStoreContract(t, s)
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := Open(context.Background(), config.Config{StoreBackend: config.StoreBackendFile, DataDir: dir}, nil)
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", s)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected data dir to be created: %v", err)
	}

	if _, err := Open(context.Background(), config.Config{StoreBackend: "mongo"}, nil); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}
