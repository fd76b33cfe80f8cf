package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeanpaul/dosely/internal/logger"
	"github.com/jeanpaul/dosely/internal/meds"
	"github.com/jeanpaul/dosely/internal/schema"
	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
	"golang.org/x/text/cases"
)

const (
	MedsFile    = "medicamentos.json"
	CatalogFile = "catalogo.json"
)

var ErrNoSuchIndex = errors.New("no such index")

// StorageError reports a failed read or write of one of the documents.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store reads and rewrites the user list and the catalog as whole JSON
// documents under one directory.
type Store struct {
	mu     sync.RWMutex
	fs     afero.Fs
	dir    string
	log    *slog.Logger
	shapes *schema.Validator
}

type Option func(*Store)

// WithFs swaps the filesystem, e.g. afero.NewMemMapFs() in tests.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func New(dir string, opts ...Option) *Store {
	s := &Store{
		fs:     afero.NewOsFs(),
		dir:    dir,
		log:    logger.Discard(),
		shapes: schema.NewValidator(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(slog.String("component", "store"))
	return s
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) medsPath() string    { return filepath.Join(s.dir, MedsFile) }
func (s *Store) catalogPath() string { return filepath.Join(s.dir, CatalogFile) }

// EnsureStorage creates the storage directory if needed.
func (s *Store) EnsureStorage() error {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return &StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}
	return nil
}

// LoadUserList returns the stored records in order. A missing document is
// created empty; a malformed one reads as empty.
func (s *Store) LoadUserList() []meds.MedicationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.medsPath())
	if err == nil && !exists {
		if err := s.writeJSON(s.medsPath(), []meds.MedicationRecord{}); err != nil {
			s.log.Warn("init user list", slog.String("error", err.Error()))
		}
		return []meds.MedicationRecord{}
	}
	return decodeList[meds.MedicationRecord](s, s.medsPath())
}

// AppendRecord adds rec at the end of the list and returns its index.
func (s *Store) AppendRecord(rec meds.MedicationRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := decodeList[meds.MedicationRecord](s, s.medsPath())
	list = append(list, rec)
	if err := s.writeJSON(s.medsPath(), list); err != nil {
		return -1, err
	}
	s.log.Debug("record appended", slog.Int("index", len(list)-1), slog.String("name", rec.Name))
	return len(list) - 1, nil
}

// UpdateRecord replaces the record at index.
func (s *Store) UpdateRecord(index int, rec meds.MedicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := decodeList[meds.MedicationRecord](s, s.medsPath())
	if index < 0 || index >= len(list) {
		return fmt.Errorf("update record %d: %w", index, ErrNoSuchIndex)
	}
	list[index] = rec
	if err := s.writeJSON(s.medsPath(), list); err != nil {
		return err
	}
	s.log.Debug("record updated", slog.Int("index", index), slog.String("name", rec.Name))
	return nil
}

// Record returns a single stored record.
func (s *Store) Record(index int) (meds.MedicationRecord, error) {
	list := s.LoadUserList()
	if index < 0 || index >= len(list) {
		return meds.MedicationRecord{}, fmt.Errorf("record %d: %w", index, ErrNoSuchIndex)
	}
	return list[index], nil
}

// LoadCatalog returns the catalog, seeding the default one when the file
// does not exist yet.
func (s *Store) LoadCatalog() []meds.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, s.catalogPath())
	if err == nil && !exists {
		seed := meds.DefaultCatalog()
		if err := s.writeJSON(s.catalogPath(), seed); err != nil {
			s.log.Warn("seed catalog", slog.String("error", err.Error()))
		}
		return seed
	}
	return decodeList[meds.CatalogEntry](s, s.catalogPath())
}

// SearchCatalog matches query against name or substance, ignoring case.
// A blank query returns the whole catalog. Catalog order is kept.
func (s *Store) SearchCatalog(query string) []meds.CatalogEntry {
	catalog := s.LoadCatalog()
	// A Caser keeps state and must not be shared between goroutines.
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return catalog
	}

	out := make([]meds.CatalogEntry, 0, len(catalog))
	for _, e := range catalog {
		if strings.Contains(fold.String(e.Name), q) || strings.Contains(fold.String(e.Substance), q) {
			out = append(out, e)
		}
	}
	return out
}

// ReplaceCatalog overwrites the catalog document.
func (s *Store) ReplaceCatalog(entries []meds.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entries == nil {
		entries = []meds.CatalogEntry{}
	}
	if err := s.writeJSON(s.catalogPath(), entries); err != nil {
		return err
	}
	s.log.Info("catalog replaced", slog.Int("entries", len(entries)))
	return nil
}

// decodeList reads path as a JSON array of objects. Elements that do not
// decode are skipped; anything else wrong yields an empty list.
func decodeList[T any](s *Store, path string) []T {
	out := []T{}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("read document", slog.String("path", path), slog.String("error", err.Error()))
		}
		return out
	}
	if err := s.shapes.Validate(schema.ListOfObjects, data); err != nil {
		s.log.Warn("malformed document", slog.String("path", path), slog.String("error", err.Error()))
		return out
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("malformed document", slog.String("path", path), slog.String("error", err.Error()))
		return out
	}
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			s.log.Warn("skipping element", slog.String("path", path), slog.Int("position", i), slog.String("error", err.Error()))
			continue
		}
		out = append(out, v)
	}
	return out
}

// writeJSON replaces path through a temp file in the same directory so a
// crash leaves either the old or the new document.
func (s *Store) writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return &StorageError{Op: "encode", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		s.fs.Remove(tmpName)
		return &StorageError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
