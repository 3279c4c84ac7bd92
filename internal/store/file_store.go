package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"healthmate/backend/internal/logger"
)

// FileStore keeps one indented JSON file per collection under dir. Every
// write rewrites the whole collection file.
type FileStore struct {
	dir string
	log *logger.Logger
	mu  sync.Mutex
}

func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, persistenceErr("init", dir, "", err)
	}
	return &FileStore{dir: dir, log: log.With("component", "FileStore")}, nil
}

func (s *FileStore) Get(_ context.Context, collection, key string, dst any) (bool, error) {
	docs, err := s.load(collection)
	if err != nil {
		return false, err
	}
	raw, ok := docs[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Error("corrupted document treated as empty", "collection", collection, "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

func (s *FileStore) Put(_ context.Context, collection, key string, value any) error {
	encoded, err := encodeDocument(value)
	if err != nil {
		return persistenceErr("encode", collection, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	docs[key] = encoded
	return s.save(collection, docs)
}

func (s *FileStore) All(_ context.Context, collection string) (map[string]json.RawMessage, error) {
	return s.load(collection)
}

func (s *FileStore) Append(_ context.Context, collection, key string, entry any, limit int) error {
	encoded, err := encodeDocument(entry)
	if err != nil {
		return persistenceErr("encode", collection, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(collection)
	if err != nil {
		return err
	}
	entries := s.decodeList(collection, key, docs[key])
	entries = trimTail(append(entries, encoded), limit)

	list, err := json.Marshal(entries)
	if err != nil {
		return persistenceErr("encode", collection, key, err)
	}
	docs[key] = list
	return s.save(collection, docs)
}

func (s *FileStore) Entries(_ context.Context, collection, key string) ([]json.RawMessage, error) {
	docs, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	return s.decodeList(collection, key, docs[key]), nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *FileStore) load(collection string) (map[string]json.RawMessage, error) {
	path := s.path(collection)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		s.log.Error("failed to read collection file", "path", path, "err", err)
		return nil, persistenceErr("read", collection, "", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var docs map[string]json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil || docs == nil {
		s.log.Error("corrupted collection file treated as empty", "path", path, "err", err)
		return map[string]json.RawMessage{}, nil
	}
	return docs, nil
}

func (s *FileStore) save(collection string, docs map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return persistenceErr("encode", collection, "", err)
	}

	path := s.path(collection)
	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		s.log.Error("failed to save collection file", "path", path, "err", err)
		return persistenceErr("write", collection, "", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.log.Error("failed to save collection file", "path", path, "err", err)
		return persistenceErr("write", collection, "", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return persistenceErr("write", collection, "", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		s.log.Error("failed to save collection file", "path", path, "err", err)
		return persistenceErr("write", collection, "", err)
	}
	s.log.Debug("saved collection file", "path", path, "documents", len(docs))
	return nil
}

func (s *FileStore) decodeList(collection, key string, raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Error("corrupted entry list treated as empty", "collection", collection, "key", key, "err", err)
		return nil
	}
	return entries
}
