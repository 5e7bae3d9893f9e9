package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Required store columns. Column order in the file may vary; the set may not.
const (
	ColDate        = "Date"
	ColRouteID     = "Route_ID"
	ColSeatsBooked = "Seats_Booked"
	ColFuelLiters  = "Fuel_Consumption_Liters"
	ColTotalSeats  = "Total_Seats"
	ColTicketPrice = "Ticket_Price"
)

var requiredColumns = []string{
	ColDate, ColRouteID, ColSeatsBooked, ColFuelLiters, ColTotalSeats, ColTicketPrice,
}

var (
	// ErrEmptyStore is returned when the store file exists but holds no rows.
	ErrEmptyStore = errors.New("dataset: store has no rows")
	// ErrSchemaMismatch is returned when an appended file's column set does
	// not exactly match the store schema. The store is left unmodified.
	ErrSchemaMismatch = errors.New("dataset: column set does not match store schema")
)

// Dates in the source data are day-first.
var dateLayouts = []string{"02-01-2006", "02/01/2006", "2006-01-02"}

// Observation is one per-trip booking record, immutable once loaded.
type Observation struct {
	Date        time.Time
	RouteID     string
	SeatsBooked float64
	FuelLiters  float64
	TotalSeats  float64
	TicketPrice float64
}

// Store is a CSV-file backed booking record store. Reads take no lock;
// appends are serialized so a rejected upload can never interleave with
// an accepted one.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a store for the given CSV file. The file must already
// exist; a missing store is fatal for the session.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset: open store: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the underlying file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads every observation from the store. It fails if any required
// column is absent or if the store holds no data rows.
func (s *Store) Load() ([]Observation, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("dataset: load: %w", err)
	}
	defer f.Close()
	return readObservations(f)
}

func readObservations(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyStore
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var obs []Observation
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row %d: %w", len(obs)+2, err)
		}

		o, err := parseObservation(record, idx)
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", len(obs)+2, err)
		}
		obs = append(obs, o)
	}

	if len(obs) == 0 {
		return nil, ErrEmptyStore
	}
	return obs, nil
}

// columnIndex maps each required column name to its position in header.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("dataset: missing column %q: %w", col, ErrSchemaMismatch)
		}
	}
	return idx, nil
}

func parseObservation(record []string, idx map[string]int) (Observation, error) {
	field := func(col string) string {
		i := idx[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := parseDate(field(ColDate))
	if err != nil {
		return Observation{}, err
	}

	o := Observation{Date: date, RouteID: field(ColRouteID)}
	for _, c := range []struct {
		col string
		dst *float64
	}{
		{ColSeatsBooked, &o.SeatsBooked},
		{ColFuelLiters, &o.FuelLiters},
		{ColTotalSeats, &o.TotalSeats},
		{ColTicketPrice, &o.TicketPrice},
	} {
		v, err := strconv.ParseFloat(field(c.col), 64)
		if err != nil {
			return Observation{}, fmt.Errorf("parse %s: %w", c.col, err)
		}
		*c.dst = v
	}
	return o, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
}

// Append validates the uploaded CSV against the store schema and, only if
// the column sets match exactly, appends its data rows in the store's
// column order. On any validation failure the store file is untouched.
// Returns the number of rows appended.
func (s *Store) Append(upload io.Reader) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storeHeader, err := s.readHeader()
	if err != nil {
		return 0, err
	}

	cr := csv.NewReader(upload)
	cr.TrimLeadingSpace = true

	upHeader, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("dataset: upload header: %w", err)
	}
	for i := range upHeader {
		upHeader[i] = strings.TrimSpace(upHeader[i])
	}

	if !sameColumnSet(storeHeader, upHeader) {
		return 0, ErrSchemaMismatch
	}

	// Column positions may differ between upload and store; remap each
	// row to the store's order before writing anything.
	remap := make([]int, len(storeHeader))
	for i, col := range storeHeader {
		for j, up := range upHeader {
			if up == col {
				remap[i] = j
				break
			}
		}
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("dataset: upload row %d: %w", len(rows)+2, err)
		}
		row := make([]string, len(storeHeader))
		for i, j := range remap {
			row[i] = record[j]
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return 0, fmt.Errorf("dataset: append: %w", err)
	}
	defer f.Close()

	// A store whose last line lacks a terminating newline would glue the
	// first appended row onto it.
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("dataset: append: %w", err)
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return 0, fmt.Errorf("dataset: append: %w", err)
		}
		if last[0] != '\n' {
			if _, err := f.Write([]byte("\n")); err != nil {
				return 0, fmt.Errorf("dataset: append: %w", err)
			}
		}
	}

	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return 0, fmt.Errorf("dataset: append: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("dataset: append: %w", err)
	}
	return len(rows), nil
}

func (s *Store) readHeader() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, nil
}

// sameColumnSet reports whether two headers contain exactly the same
// column names, regardless of order. A duplicated name on either side
// fails the match: a duplicate in the upload could otherwise mask a
// missing column and shift fields into the wrong positions.
func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	setA := columnSet(a)
	setB := columnSet(b)
	if setA == nil || setB == nil {
		return false
	}
	for col := range setA {
		if _, ok := setB[col]; !ok {
			return false
		}
	}
	return true
}

// columnSet builds a name set from a header, or nil if any name repeats.
func columnSet(header []string) map[string]struct{} {
	set := make(map[string]struct{}, len(header))
	for _, col := range header {
		if _, ok := set[col]; ok {
			return nil
		}
		set[col] = struct{}{}
	}
	return set
}
