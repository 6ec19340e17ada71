// Package reference holds the population growth-reference data used to score
// child measurements. A Table is immutable once built and safe for concurrent
// readers.
package reference

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Sex of the measured subject.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Measure is the kind of anthropometric measurement.
type Measure string

const (
	Height Measure = "height"
	Weight Measure = "weight"
)

var (
	ErrUnknownSex     = errors.New("unknown sex")
	ErrUnknownMeasure = errors.New("unknown measurement type")
)

// ParseSex normalises a loosely formatted sex label.
func ParseSex(s string) (Sex, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "boy":
		return Male, true
	case "female", "f", "girl":
		return Female, true
	}
	return "", false
}

// Valid reports whether s is one of the known sexes.
func (s Sex) Valid() bool {
	return s == Male || s == Female
}

// Valid reports whether m is one of the known measurement types.
func (m Measure) Valid() bool {
	return m == Height || m == Weight
}

// Unit returns the display unit of the measure.
func (m Measure) Unit() string {
	if m == Weight {
		return "kg"
	}
	return "cm"
}

// Entry holds the LMS parameters of one age/sex/measure distribution:
// L is the Box-Cox power, M the median and S the coefficient of variation.
type Entry struct {
	L float64 `json:"L"`
	M float64 `json:"M"`
	S float64 `json:"S"`
}

func (e Entry) valid() bool {
	return !math.IsNaN(e.L) && !math.IsInf(e.L, 0) && e.M > 0 && e.S > 0
}

type series struct {
	ages    []int // ascending
	entries map[int]Entry
}

// Table is the full reference keyed by sex, measure and age in months.
type Table struct {
	data map[Sex]map[Measure]*series
}

// Parse builds a Table from the nested JSON mapping
// sex -> measure -> ageMonths -> {L, M, S}. Age keys are decimal integers.
func Parse(raw []byte) (*Table, error) {
	var doc map[string]map[string]map[string]Entry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode reference table: %w", err)
	}

	t := &Table{data: make(map[Sex]map[Measure]*series)}
	for sexKey, measures := range doc {
		sex, ok := ParseSex(sexKey)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSex, sexKey)
		}
		for measureKey, ages := range measures {
			measure := Measure(strings.ToLower(measureKey))
			if !measure.Valid() {
				return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, measureKey)
			}
			for ageKey, e := range ages {
				age, err := strconv.Atoi(strings.TrimSpace(ageKey))
				if err != nil || age < 0 {
					return nil, fmt.Errorf("invalid age key %q in %s/%s", ageKey, sex, measure)
				}
				if err := t.set(sex, measure, age, e); err != nil {
					return nil, err
				}
			}
		}
	}
	t.sortAges()
	return t, nil
}

// Load reads a reference table from a JSON file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table: %w", err)
	}
	return Parse(raw)
}

// Row is one tabulated reference point, used to build tables in code.
type Row struct {
	Sex     Sex
	Measure Measure
	Age     int
	Entry   Entry
}

// New builds a Table from explicit rows.
func New(rows ...Row) (*Table, error) {
	t := &Table{data: make(map[Sex]map[Measure]*series)}
	for _, r := range rows {
		if !r.Sex.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSex, r.Sex)
		}
		if !r.Measure.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, r.Measure)
		}
		if r.Age < 0 {
			return nil, fmt.Errorf("negative age %d in %s/%s", r.Age, r.Sex, r.Measure)
		}
		if err := t.set(r.Sex, r.Measure, r.Age, r.Entry); err != nil {
			return nil, err
		}
	}
	t.sortAges()
	return t, nil
}

func (t *Table) set(sex Sex, measure Measure, age int, e Entry) error {
	if !e.valid() {
		return fmt.Errorf("invalid LMS entry for %s/%s at %d months: %+v", sex, measure, age, e)
	}
	bySex, ok := t.data[sex]
	if !ok {
		bySex = make(map[Measure]*series)
		t.data[sex] = bySex
	}
	s, ok := bySex[measure]
	if !ok {
		s = &series{entries: make(map[int]Entry)}
		bySex[measure] = s
	}
	if _, dup := s.entries[age]; !dup {
		s.ages = append(s.ages, age)
	}
	s.entries[age] = e
	return nil
}

func (t *Table) sortAges() {
	for _, bySex := range t.data {
		for _, s := range bySex {
			slices.Sort(s.ages)
		}
	}
}

func (t *Table) series(sex Sex, measure Measure) *series {
	if t == nil {
		return nil
	}
	return t.data[sex][measure]
}

// Lookup returns the entry tabulated at exactly ageMonths.
func (t *Table) Lookup(sex Sex, measure Measure, ageMonths int) (Entry, bool) {
	s := t.series(sex, measure)
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.entries[ageMonths]
	return e, ok
}

// Nearest returns the entry whose tabulated age is closest to ageMonths,
// together with that age. Ages are scanned in ascending order and only a
// strictly smaller distance replaces the current candidate, so an exact tie
// resolves to the younger age. Callers must not rely on the tie direction.
func (t *Table) Nearest(sex Sex, measure Measure, ageMonths int) (Entry, int, bool) {
	s := t.series(sex, measure)
	if s == nil || len(s.ages) == 0 {
		return Entry{}, 0, false
	}

	best := s.ages[0]
	for _, age := range s.ages[1:] {
		if absInt(age-ageMonths) < absInt(best-ageMonths) {
			best = age
		}
	}
	return s.entries[best], best, true
}

// Resolve returns the exact entry when tabulated, otherwise the nearest one.
func (t *Table) Resolve(sex Sex, measure Measure, ageMonths int) (Entry, int, bool) {
	if e, ok := t.Lookup(sex, measure, ageMonths); ok {
		return e, ageMonths, true
	}
	return t.Nearest(sex, measure, ageMonths)
}

// Ages lists the tabulated ages for a sex and measure in ascending order.
func (t *Table) Ages(sex Sex, measure Measure) []int {
	s := t.series(sex, measure)
	if s == nil {
		return nil
	}
	return slices.Clone(s.ages)
}

// Len returns the total number of tabulated entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, bySex := range t.data {
		for _, s := range bySex {
			n += len(s.entries)
		}
	}
	return n
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

//go:embed data/lms.json
var embedded []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded WHO-derived table covering 0-60 months.
// It is parsed once per process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(embedded)
	})
	return defaultTable, defaultErr
}
