package ckan

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

// Column names in the licensed-child-care-centres datastore dump.
var requiredColumns = []string{
	"LOC_ID", "LOC_NAME", "ADDRESS", "geometry",
	"IGSPACE", "TGSPACE", "PGSPACE", "KGSPACE", "SGSPACE", "TOTSPACE",
}

// ParseSnapshot reads a datastore CSV dump into validated records. Any
// structural failure of a required field rejects the whole snapshot; a
// partially parsed dataset is never returned. Optional columns (postal code,
// phone, subsidy and CWELCC flags) may be absent entirely and default to zero
// values.
func ParseSnapshot(r io.Reader) ([]domain.DaycareRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // header decides; rows are checked against it below

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", domain.ErrDataUnavailable, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: csv missing required column %s", domain.ErrDataUnavailable, name)
		}
	}

	var records []domain.DaycareRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %v", domain.ErrDataUnavailable, line, err)
		}

		rec, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %v", domain.ErrDataUnavailable, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, col map[string]int) (domain.DaycareRecord, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	id := get("LOC_ID")
	name := get("LOC_NAME")
	if id == "" || name == "" {
		return domain.DaycareRecord{}, fmt.Errorf("missing LOC_ID or LOC_NAME")
	}

	lat, lon, err := parseGeometry(get("geometry"))
	if err != nil {
		return domain.DaycareRecord{}, fmt.Errorf("record %s: %v", id, err)
	}

	spaces := make(map[string]int, 6)
	for _, c := range []string{"IGSPACE", "TGSPACE", "PGSPACE", "KGSPACE", "SGSPACE", "TOTSPACE"} {
		n, err := parseSpaces(get(c))
		if err != nil {
			return domain.DaycareRecord{}, fmt.Errorf("record %s: column %s: %v", id, c, err)
		}
		spaces[c] = n
	}

	return domain.DaycareRecord{
		ID:                 id,
		Name:               name,
		Address:            get("ADDRESS"),
		PostalCode:         get("PCODE"),
		Phone:              get("PHONE"),
		Lat:                lat,
		Lon:                lon,
		InfantSpaces:       spaces["IGSPACE"],
		ToddlerSpaces:      spaces["TGSPACE"],
		PreschoolSpaces:    spaces["PGSPACE"],
		KindergartenSpaces: spaces["KGSPACE"],
		SchoolAgeSpaces:    spaces["SGSPACE"],
		TotalSpaces:        spaces["TOTSPACE"],
		Subsidy:            flag(get("subsidy")),
		CWELCC:             flag(get("cwelcc_flag")),
	}, nil
}

type geoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

func parseGeometry(s string) (lat, lon float64, err error) {
	if s == "" {
		return 0, 0, fmt.Errorf("empty geometry")
	}
	var g geoJSONPoint
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return 0, 0, fmt.Errorf("malformed geometry: %v", err)
	}
	if g.Type != "Point" || len(g.Coordinates) != 2 {
		return 0, 0, fmt.Errorf("geometry is not a point")
	}
	return g.Coordinates[1], g.Coordinates[0], nil
}

// parseSpaces treats an empty cell as zero spaces (the dataset leaves cells
// blank for groups a centre is not licensed for); anything else must be a
// non-negative integer.
func parseSpaces(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative space count %d", n)
	}
	return n, nil
}

func flag(s string) bool { return strings.EqualFold(s, "Y") }
