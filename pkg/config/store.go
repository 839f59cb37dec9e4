package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// ErrReadOnly reports that the backing location cannot be written. Callers
// are expected to keep using the in-memory document and warn the operator
// once per session; this is a supported degraded mode, not a failure.
var ErrReadOnly = errors.New("configuration location is not writable")

// LoadStatus tags a load result so callers can tell "fine" from "degraded
// but usable" without inspecting logs.
type LoadStatus int

const (
	// LoadedFromFile means the persisted document was read cleanly.
	LoadedFromFile LoadStatus = iota
	// LoadedDefaults means no document exists yet; defaults were used and
	// nothing was written.
	LoadedDefaults
	// LoadedRecovered means the document (or some of its fields) was
	// malformed or out of bounds and fell back to defaults.
	LoadedRecovered
)

// LoadResult is the total outcome of a Load call. Document is always
// usable and always satisfies every hard bound.
type LoadResult struct {
	Document *Document
	Status   LoadStatus
	Warnings []string
}

// Store reads and writes the persisted configuration document. A single
// local operator and process is assumed; there is no file locking.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a persisted document is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the persisted document. It never fails the caller: a missing
// file yields defaults, a malformed file yields defaults with a warning,
// and a field that is the wrong type or violates its hard bound is reset
// to its default individually. Unrecognized keys are preserved verbatim.
func (s *Store) Load() LoadResult {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadResult{Document: DefaultDocument(), Status: LoadedDefaults}
		}
		return LoadResult{
			Document: DefaultDocument(),
			Status:   LoadedRecovered,
			Warnings: []string{fmt.Sprintf("could not read %s: %v; using defaults", s.path, err)},
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LoadResult{
			Document: DefaultDocument(),
			Status:   LoadedRecovered,
			Warnings: []string{fmt.Sprintf("configuration file %s is corrupt (%v); using defaults", s.path, err)},
		}
	}

	doc := &Document{ConfigVersion: Version}
	var warnings []string

	for _, spec := range Specs() {
		msg, ok := raw[spec.Name]
		delete(raw, spec.Name)
		if !ok {
			// Missing keys are normal forward compatibility, filled
			// silently from defaults.
			_ = doc.SetValue(spec.Name, spec.Default)
			continue
		}

		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s is not a number; reset to default %s",
				spec.Name, spec.FormatValue(spec.Default)))
			_ = doc.SetValue(spec.Name, spec.Default)
			continue
		}
		if spec.Kind == KindInteger && v != math.Trunc(v) {
			warnings = append(warnings, fmt.Sprintf("%s must be a whole number; reset to default %s",
				spec.Name, spec.FormatValue(spec.Default)))
			_ = doc.SetValue(spec.Name, spec.Default)
			continue
		}
		if verdict := spec.Validate(v); verdict.Kind == RejectedHard {
			warnings = append(warnings, fmt.Sprintf("%s: %s; reset to default %s",
				spec.Name, verdict.Reason, spec.FormatValue(spec.Default)))
			_ = doc.SetValue(spec.Name, spec.Default)
			continue
		}
		_ = doc.SetValue(spec.Name, v)
	}

	if msg, ok := raw[keyConfigVersion]; ok {
		delete(raw, keyConfigVersion)
		var version string
		if err := json.Unmarshal(msg, &version); err == nil && version != "" {
			doc.ConfigVersion = version
		}
	}
	if msg, ok := raw[keyLastUpdated]; ok {
		delete(raw, keyLastUpdated)
		var stamp string
		if err := json.Unmarshal(msg, &stamp); err == nil && stamp != "" {
			if t, err := time.Parse(time.RFC3339, stamp); err == nil {
				doc.LastUpdated = t
			}
		}
	}
	if len(raw) > 0 {
		doc.extra = raw
	}

	status := LoadedFromFile
	if len(warnings) > 0 {
		status = LoadedRecovered
	}
	return LoadResult{Document: doc, Status: status, Warnings: warnings}
}

// Save stamps the document with the fixed format version and a fresh
// timestamp, then writes it atomically: the new content goes to a
// temporary file which replaces the old document in one rename, so a
// failed write never leaves a truncated document behind. Any write
// failure is reported as ErrReadOnly.
func (s *Store) Save(doc *Document) error {
	doc.ConfigVersion = Version
	doc.LastUpdated = time.Now()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrReadOnly, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrReadOnly, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrReadOnly, err)
	}
	return nil
}
