// Package usda parses the SNAP retailer locator export published by USDA FNS.
package usda

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// Column aliases seen across export vintages, keyed by normalized header.
var columnAliases = map[string][]string{
	"id":        {"recordid", "objectid", "storeid"},
	"name":      {"storename"},
	"type":      {"storetype"},
	"street":    {"storestreetaddress", "address"},
	"street2":   {"additonaladdress", "additionaladdress", "address2"},
	"city":      {"city"},
	"state":     {"state"},
	"zip":       {"zipcode", "zip5", "zip"},
	"lat":       {"latitude", "y"},
	"lon":       {"longitude", "x"},
	"incentive": {"incentiveprogram"},
}

// ErrMissingColumns is returned when the header lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// Reader streams retailer rows as domain locations.
type Reader struct {
	r    *csv.Reader
	cols map[string]int
	now  time.Time
	line int

	// Malformed counts rows that could not be parsed at all.
	Malformed int
}

// NewReader reads the header row and resolves column positions.
func NewReader(src io.Reader, now time.Time) (*Reader, error) {
	r := csv.NewReader(src)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := resolveColumns(header)
	var missing []string
	for _, k := range []string{"id", "name", "city", "state"} {
		if _, ok := cols[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return &Reader{r: r, cols: cols, now: now.UTC(), line: 1}, nil
}

// Next returns up to n locations. It returns io.EOF once the input is
// exhausted and no rows were read.
func (rd *Reader) Next(n int) ([]domain.Location, error) {
	out := make([]domain.Location, 0, n)
	for len(out) < n {
		rec, err := rd.r.Read()
		rd.line++
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rd.Malformed++
				continue
			}
			return out, err
		}
		out = append(out, rd.location(rec))
	}
	if len(out) == 0 {
		return nil, io.EOF
	}
	return out, nil
}

func (rd *Reader) location(rec []string) domain.Location {
	street := rd.field(rec, "street")
	if s2 := rd.field(rec, "street2"); s2 != "" {
		street += " " + s2
	}
	loc := domain.Location{
		ID:   rd.field(rec, "id"),
		Name: rd.field(rec, "name"),
		Type: rd.field(rec, "type"),
		Address: domain.Address{
			Street: street,
			City:   rd.field(rec, "city"),
			State:  rd.field(rec, "state"),
			Zip:    rd.field(rec, "zip"),
		},
		IncentiveProgram: rd.field(rec, "incentive"),
		UpdatedAt:        rd.now,
	}
	lat, errLat := strconv.ParseFloat(rd.field(rec, "lat"), 64)
	lon, errLon := strconv.ParseFloat(rd.field(rec, "lon"), 64)
	if errLat == nil && errLon == nil {
		loc.Coordinates = &domain.GeoPoint{Lat: lat, Lon: lon}
	}
	return loc
}

func (rd *Reader) field(rec []string, key string) string {
	i, ok := rd.cols[key]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func resolveColumns(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[normalizeHeader(h)] = i
	}
	cols := make(map[string]int, len(columnAliases))
	for key, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				cols[key] = i
				break
			}
		}
	}
	return cols
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimPrefix(h, "\ufeff")) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
