package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// csvColumns is the fixed column order for the fixture CSV schema
// (spec.md §6).
var csvColumns = []string{
	"id", "enabled", "universe", "start_addr",
	"pan_coarse", "pan_fine", "tilt_coarse", "tilt_fine",
	"dimmer", "zoom", "zoom_fine",
	"color_temp_channel", "color_temp_value",
	"invert_pan", "invert_tilt", "pan_bias", "tilt_bias", "status_led",
}

// parseBool accepts the "True"/"False" strings the original UI emits
// (design note in spec.md §9: dynamic True/False strings must be accepted
// and normalized to booleans at admission) as well as the usual
// strconv.ParseBool spellings.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return strconv.ParseBool(s)
	}
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func fixtureToRow(f Fixture) []string {
	return []string{
		f.ID,
		formatBool(f.Enabled),
		strconv.Itoa(f.Universe),
		strconv.Itoa(f.StartAddr),
		strconv.Itoa(f.PanCoarse),
		strconv.Itoa(f.PanFine),
		strconv.Itoa(f.TiltCoarse),
		strconv.Itoa(f.TiltFine),
		strconv.Itoa(f.Dimmer),
		strconv.Itoa(f.Zoom),
		strconv.Itoa(f.ZoomFine),
		strconv.Itoa(f.ColorTempChannel),
		strconv.Itoa(int(f.ColorTempValue)),
		formatBool(f.InvertPan),
		formatBool(f.InvertTilt),
		strconv.Itoa(int(f.PanBias)),
		strconv.Itoa(int(f.TiltBias)),
		strconv.Itoa(f.StatusLEDSlot),
	}
}

func rowToFixture(row []string) (Fixture, error) {
	if len(row) != len(csvColumns) {
		return Fixture{}, fmt.Errorf("expected %d columns, got %d", len(csvColumns), len(row))
	}
	atoi := func(s string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(s))
		return n
	}
	enabled, err := parseBool(row[1])
	if err != nil {
		return Fixture{}, fmt.Errorf("enabled: %w", err)
	}
	invertPan, err := parseBool(row[13])
	if err != nil {
		return Fixture{}, fmt.Errorf("invert_pan: %w", err)
	}
	invertTilt, err := parseBool(row[14])
	if err != nil {
		return Fixture{}, fmt.Errorf("invert_tilt: %w", err)
	}
	return Fixture{
		ID:               strings.TrimSpace(row[0]),
		Enabled:          enabled,
		Universe:         atoi(row[2]),
		StartAddr:        atoi(row[3]),
		PanCoarse:        atoi(row[4]),
		PanFine:          atoi(row[5]),
		TiltCoarse:       atoi(row[6]),
		TiltFine:         atoi(row[7]),
		Dimmer:           atoi(row[8]),
		Zoom:             atoi(row[9]),
		ZoomFine:         atoi(row[10]),
		ColorTempChannel: atoi(row[11]),
		ColorTempValue:   uint8(atoi(row[12])),
		InvertPan:        invertPan,
		InvertTilt:       invertTilt,
		PanBias:          int16(atoi(row[15])),
		TiltBias:         int16(atoi(row[16])),
		StatusLEDSlot:    atoi(row[17]),
	}, nil
}

func writeFixturesCSV(path string, fixtures []Fixture) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return err
	}
	for _, fx := range fixtures {
		if err := w.Write(fixtureToRow(fx)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readFixturesCSV(path string) ([]Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFixturesCSV(f)
}

// ParseFixturesCSV parses the bulk-import CSV body for
// POST /api/fixtures/import (spec.md §6), skipping the header row.
func ParseFixturesCSV(r io.Reader) ([]Fixture, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	start := 0
	if len(rows[0]) > 0 && strings.EqualFold(strings.TrimSpace(rows[0][0]), "id") {
		start = 1
	}
	out := make([]Fixture, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		f, err := rowToFixture(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ImportFixtures validates and replaces the entire fixture list from a bulk
// CSV import, enforcing the same invariants as AddFixture.
func (s *Store) ImportFixtures(fixtures []Fixture) error {
	return s.write(func(snap *Snapshot) error {
		if len(fixtures) > MaxFixtures {
			return fmt.Errorf("import of %d fixtures exceeds limit of %d", len(fixtures), MaxFixtures)
		}
		seen := map[string]bool{}
		for _, f := range fixtures {
			if seen[f.ID] {
				return fmt.Errorf("duplicate fixture id %q in import", f.ID)
			}
			seen[f.ID] = true
			if err := f.Validate(); err != nil {
				return err
			}
		}
		snap.Fixtures = fixtures
		return nil
	})
}
