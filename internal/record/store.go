// Package record looks up patient discharge reports on disk and narrows a
// set of same-name reports down to one.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Outcome int

const (
	NotFound Outcome = iota
	Resolved
	Ambiguous
	NoMatch
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not_found"
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	case NoMatch:
		return "no_match"
	default:
		return "unknown"
	}
}

// Result is the outcome of a lookup or a disambiguation. Record is set only
// for Resolved; Candidates only for an Ambiguous lookup.
type Result struct {
	Outcome    Outcome
	Record     *PatientRecord
	Candidates []PatientRecord
}

var ErrMalformedRecord = errors.New("malformed record file")

// Store is a read-only directory of per-patient record files.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Lookup scans every record file and matches the stored patient name against
// name, case-insensitively and exactly. Any unreadable or malformed file
// aborts the lookup.
func (s *Store) Lookup(name string) (Result, error) {
	want := fold(name)
	if want == "" {
		return Result{Outcome: NotFound}, nil
	}

	files, err := s.recordFiles()
	if err != nil {
		return Result{}, err
	}

	var found []PatientRecord
	for _, file := range files {
		rec, err := s.load(file)
		if err != nil {
			return Result{}, err
		}
		if fold(rec.Name) == want {
			found = append(found, rec)
		}
	}

	switch len(found) {
	case 0:
		return Result{Outcome: NotFound}, nil
	case 1:
		return Result{Outcome: Resolved, Record: &found[0]}, nil
	default:
		return Result{Outcome: Ambiguous, Candidates: found}, nil
	}
}

func (s *Store) recordFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read record store %s: %w", s.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isRecordFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func isRecordFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func (s *Store) load(file string) (PatientRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, file))
	if err != nil {
		return PatientRecord{}, fmt.Errorf("read %s: %w", file, err)
	}

	fields := map[string]any{}
	if strings.EqualFold(filepath.Ext(file), ".json") {
		err = json.Unmarshal(data, &fields)
	} else {
		err = yaml.Unmarshal(data, &fields)
	}
	if err != nil {
		return PatientRecord{}, fmt.Errorf("%w %s: %v", ErrMalformedRecord, file, err)
	}
	if fields == nil {
		return PatientRecord{}, fmt.Errorf("%w %s: empty document", ErrMalformedRecord, file)
	}
	for k, v := range fields {
		fields[k] = plainDates(v)
	}
	return newRecord(file, fields), nil
}

// ClarificationMessage lists same-name reports so the patient can pick one by
// discharge date or diagnosis.
func ClarificationMessage(name string, candidates []PatientRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Multiple patients found with the name %s. Please specify which report you need by providing the discharge date or diagnosis.\n", name)
	b.WriteString("Here are the reports I found:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "  %d. Name: %s, Diagnosis: %s, Discharge Date: %s\n",
			i+1, orNA(c.Name), orNA(c.Diagnosis), orNA(c.DischargeDate))
	}
	return b.String()
}

// plainDates turns timestamps decoded from unquoted YAML dates back into the
// text the file holds, so dates compare and render as written.
func plainDates(v any) any {
	switch t := v.(type) {
	case time.Time:
		h, m, sec := t.Clock()
		if h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case map[string]any:
		for k, e := range t {
			t[k] = plainDates(e)
		}
	case []any:
		for i, e := range t {
			t[i] = plainDates(e)
		}
	}
	return v
}
