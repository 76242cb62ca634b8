package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/port"
)

// Store is a key-value namespace persisted as a single JSON file. Every
// mutation rewrites the whole namespace through a temp file and rename, so
// an interrupted write never leaves a half-written value behind.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]json.RawMessage
}

func NewStore(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "history.json")

	store := &Store{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	if err := store.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return store, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, &s.data)
}

func (s *Store) save() error {
	tmpPath := s.path + ".tmp"

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append(json.RawMessage(nil), value...)
	return s.save()
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return s.save()
}

// UsedBytes measures the serialized size of the whole namespace exactly as
// save writes it, which is what counts against the storage budget.
func (s *Store) UsedBytes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

var _ port.KeyValue = (*Store)(nil)
