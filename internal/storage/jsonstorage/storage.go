package jsonstorage

import (
	"bytes"
	"encoding/json"
	"github.com/cespare/xxhash/v2"
	"github.com/denismitr/kire/internal/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var ErrCorruptFile = errors.New("storage file is not a JSON object")

const (
	filePerm      = 0600
	CorruptSuffix = ".corrupt"
)

// JSONStorage keeps every key in a single JSON object on disk. Each write
// replaces the file atomically, so readers in other processes never see a
// partially written blob.
type JSONStorage struct {
	mu    sync.RWMutex
	log   *zap.Logger
	path  string
	items map[string]json.RawMessage
	sum   uint64
}

type Option func(s *JSONStorage)

func WithLogger(l *zap.Logger) Option {
	return func(s *JSONStorage) {
		s.log = l
	}
}

// Open loads the storage file at path. A file that is not a JSON object is
// copied next to it with the .corrupt suffix and the storage starts empty.
func Open(path string, opts ...Option) (*JSONStorage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve storage path %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
		return nil, errors.Wrapf(err, "could not create storage directory for %s", abs)
	}

	s := &JSONStorage{path: abs, items: make(map[string]json.RawMessage), log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.Sync(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *JSONStorage) Path() string {
	return s.path
}

func (s *JSONStorage) CorruptPath() string {
	return s.path + CorruptSuffix
}

func (s *JSONStorage) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}

	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (s *JSONStorage) Set(key string, value []byte) error {
	if key == "" {
		return storage.ErrEmptyKey
	}

	if !json.Valid(value) {
		return errors.Wrapf(storage.ErrInvalidValue, "key %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.syncUnderLock(); err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	if err := json.Compact(buf, value); err != nil {
		return errors.Wrapf(err, "could not compact value for key %s", key)
	}

	prev, existed := s.items[key]
	s.items[key] = buf.Bytes()
	if err := s.writeUnderLock(); err != nil {
		if existed {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}

	return nil
}

func (s *JSONStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.syncUnderLock(); err != nil {
		return err
	}

	prev, ok := s.items[key]
	if !ok {
		return nil
	}

	delete(s.items, key)
	if err := s.writeUnderLock(); err != nil {
		s.items[key] = prev
		return err
	}

	return nil
}

func (s *JSONStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *JSONStorage) Sync() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.syncUnderLock()
}

func (s *JSONStorage) syncUnderLock() (bool, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if len(s.items) == 0 && s.sum == 0 {
			return false, nil
		}
		s.items = make(map[string]json.RawMessage)
		s.sum = 0
		return true, nil
	}

	if err != nil {
		return false, errors.Wrapf(err, "could not read storage file %s", s.path)
	}

	sum := xxhash.Sum64(b)
	if sum == s.sum {
		return false, nil
	}

	items := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(b)) > 0 {
		if err := json.Unmarshal(b, &items); err != nil {
			if backupErr := s.backupUnderLock(b); backupErr != nil {
				return false, errors.Wrapf(ErrCorruptFile, "%s: %v, backup failed: %v", s.path, err, backupErr)
			}

			s.log.Warn("storage file is corrupt, starting empty",
				zap.String("path", s.path),
				zap.String("backup", s.CorruptPath()),
				zap.Error(err))
			items = make(map[string]json.RawMessage)
		}
	}

	s.items = items
	s.sum = sum
	return true, nil
}

// backupUnderLock keeps the unreadable content. The file itself is left in
// place until the next write replaces it.
func (s *JSONStorage) backupUnderLock(b []byte) error {
	if err := os.WriteFile(s.CorruptPath(), b, filePerm); err != nil {
		return errors.Wrapf(err, "could not write %s", s.CorruptPath())
	}
	return nil
}

func (s *JSONStorage) writeUnderLock() error {
	b, err := json.Marshal(s.items)
	if err != nil {
		return errors.Wrap(err, "could not marshal storage items")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrapf(err, "could not create temp file next to %s", s.path)
	}

	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "could not write to file %s", tmpName)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "could not sync file %s", tmpName)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "could not close file %s", tmpName)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return errors.Wrapf(err, "could not chmod file %s", tmpName)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return errors.Wrapf(err, "could not replace %s", s.path)
	}

	s.sum = xxhash.Sum64(b)
	return nil
}
