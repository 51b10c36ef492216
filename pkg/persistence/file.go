package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Devices []Record  `json:"devices,omitempty"`
}

// FileStore keeps all records in one JSON file. Every write rewrites the
// whole file through a temporary file and a rename.
type FileStore struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	closed bool

	now func() time.Time
}

// NewFileStore returns a store for the JSON file at path on fsys. A nil
// fsys means the OS filesystem.
func NewFileStore(fsys afero.Fs, path string) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FileStore{fs: fsys, path: path, now: time.Now}
}

func (s *FileStore) Put(r Record) error {
	if err := prepare(&r, s.now); err != nil {
		return err
	}
	return s.modify(func(records map[string]Record) {
		records[key(r.Name)] = r
	})
}

func (s *FileStore) Get(name string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return Record{}, err
	}
	r, ok := records[key(name)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (s *FileStore) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	return sortedValues(records), nil
}

func (s *FileStore) Delete(name string) error {
	return s.modify(func(records map[string]Record) {
		delete(records, key(name))
	})
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) modify(fn func(map[string]Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return err
	}
	fn(records)
	return s.save(records)
}

// load reads the file. A missing file is an empty store.
func (s *FileStore) load() (map[string]Record, error) {
	if s.closed {
		return nil, ErrClosed
	}
	records := make(map[string]Record)
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, err
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	for _, r := range doc.Devices {
		records[key(r.Name)] = r
	}
	return records, nil
}

func (s *FileStore) save(records map[string]Record) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	doc := fileDocument{
		Version: RecordVersion,
		SavedAt: s.now(),
		Devices: sortedValues(records),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.path)
}

func sortedValues(records map[string]Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

var _ Store = (*FileStore)(nil)
