package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound is returned when no record exists for a run identifier.
var ErrNotFound = errors.New("run state not found")

// FileStore persists one JSON document per run under dir/{adw_id}/adw_state.json.
// Creation is atomic (O_EXCL) and rewrites go through a temp file + rename, so a
// reader never observes a partial document. Updates merge into the raw document:
// keys written by the workflow scripts are preserved even when this code does
// not model them.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore returns a store rooted at dir (created lazily).
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(adwID string) string {
	return filepath.Join(s.dir, adwID, StateFileName)
}

// Load returns the record for adwID, or ErrNotFound.
func (s *FileStore) Load(adwID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.readRaw(adwID)
	if err != nil {
		return nil, err
	}
	return toState(raw), nil
}

// CreateIfAbsent atomically creates a minimal record for st.ADWID. It returns
// false when a record already exists, in which case nothing is written.
func (s *FileStore) CreateIfAbsent(st *State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, created, err := s.createIfAbsent(st)
	return created, err
}

// Initialize ensures a record exists for adwID and binds it to issueNumber.
// When the existing record is already in progress (non-empty branch_name) it
// is left untouched and preserved=true is returned; otherwise the identifier
// and issue number are merged in. This is the continuation guard.
func (s *FileStore) Initialize(adwID, issueNumber string) (st *State, preserved bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, created, err := s.createIfAbsent(&State{ADWID: adwID, IssueNumber: issueNumber})
	if err != nil {
		return nil, false, err
	}
	if created {
		return fresh, false, nil
	}

	raw, err := s.readRaw(adwID)
	if err != nil {
		return nil, false, err
	}
	existing := toState(raw)
	if existing.InProgress() {
		return existing, true, nil
	}

	mergePatch(raw, &State{ADWID: adwID, IssueNumber: issueNumber})
	if err := s.writeRaw(adwID, raw); err != nil {
		return nil, false, err
	}
	return toState(raw), false, nil
}

// Update merges the non-empty fields of patch into the record for adwID,
// creating the record when absent. It returns the resulting state.
func (s *FileStore) Update(adwID string, patch *State) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readRaw(adwID)
	if errors.Is(err, ErrNotFound) {
		raw = map[string]any{"created_at": nowStamp()}
	} else if err != nil {
		return nil, err
	}

	patch.ADWID = adwID
	mergePatch(raw, patch)
	if err := s.writeRaw(adwID, raw); err != nil {
		return nil, err
	}
	return toState(raw), nil
}

// List returns every readable record, newest update first.
func (s *FileStore) List() ([]*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state dir: %w", err)
	}

	var states []*State
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		raw, err := s.readRaw(entry.Name())
		if err != nil {
			// Run directories without a readable record (crashed runs,
			// foreign files) are skipped, not fatal.
			continue
		}
		states = append(states, toState(raw))
	}

	sort.Slice(states, func(i, j int) bool {
		// RFC3339 UTC stamps sort lexically.
		return states[i].UpdatedAt > states[j].UpdatedAt
	})
	return states, nil
}

// createIfAbsent must be called with s.mu held. It returns the written record
// when it created one.
func (s *FileStore) createIfAbsent(st *State) (*State, bool, error) {
	path := s.path(st.ADWID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("create run dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create state file: %w", err)
	}
	defer f.Close()

	raw := map[string]any{"created_at": nowStamp()}
	mergePatch(raw, st)
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, false, fmt.Errorf("encode state: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return nil, false, fmt.Errorf("write state file: %w", err)
	}
	return toState(raw), true, nil
}

func (s *FileStore) readRaw(adwID string) (map[string]any, error) {
	data, err := os.ReadFile(s.path(adwID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return raw, nil
}

// writeRaw rewrites the record through a temp file in the same directory so
// the rename is atomic on the same filesystem.
func (s *FileStore) writeRaw(adwID string, raw map[string]any) error {
	path := s.path(adwID)
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), StateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// mergePatch overlays the non-empty fields of patch onto raw and refreshes
// the update stamp.
func mergePatch(raw map[string]any, patch *State) {
	if patch.ADWID != "" {
		raw["adw_id"] = patch.ADWID
	}
	if patch.IssueNumber != "" {
		raw["issue_number"] = patch.IssueNumber
	}
	if patch.BranchName != "" {
		raw["branch_name"] = patch.BranchName
	}
	if patch.PlanFile != "" {
		raw["plan_file"] = patch.PlanFile
	}
	if patch.IssueClass != "" {
		raw["issue_class"] = patch.IssueClass
	}
	raw["updated_at"] = nowStamp()
}

// toState projects the raw document onto the typed record. Unknown keys and
// type mismatches from foreign writers are tolerated.
func toState(raw map[string]any) *State {
	st := &State{}
	if data, err := json.Marshal(raw); err == nil {
		// Best effort: a mistyped field aborts only that field.
		_ = json.Unmarshal(data, st)
	}
	return st
}
