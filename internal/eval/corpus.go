package eval

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
)

// Tables are exchanged as tab-separated files with a header row, the format
// used by the DCASE evaluation sets:
//
//	filename  onset  offset  event_label  [score]
//
// Weak tables carry comma-joined labels instead of timed events:
//
//	filename  event_labels

// LoadEvents reads a strongly labeled TSV into an EventTable. Rows with an
// empty event_label are kept: they mark clips known to contain no events.
func LoadEvents(path string) (EventTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading %s: empty file", path)
	}

	col := columnIndex(rows[0])
	if _, ok := col["filename"]; !ok {
		return nil, fmt.Errorf("reading %s: missing filename column", path)
	}

	var table EventTable
	for i, row := range rows[1:] {
		e := Event{Filename: field(row, col, "filename")}
		if e.Filename == "" {
			return nil, fmt.Errorf("reading %s: row %d has no filename", path, i+2)
		}
		e.Label = field(row, col, "event_label")
		if e.Onset, err = floatField(row, col, "onset"); err != nil {
			return nil, fmt.Errorf("reading %s row %d: %w", path, i+2, err)
		}
		if e.Offset, err = floatField(row, col, "offset"); err != nil {
			return nil, fmt.Errorf("reading %s row %d: %w", path, i+2, err)
		}
		if e.Score, err = floatField(row, col, "score"); err != nil {
			return nil, fmt.Errorf("reading %s row %d: %w", path, i+2, err)
		}
		table = append(table, e)
	}
	return table, nil
}

// SaveEvents writes an EventTable as a strongly labeled TSV.
func SaveEvents(table EventTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create events: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write([]string{"filename", "onset", "offset", "event_label", "score"}); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for _, e := range table {
		row := []string{
			e.Filename,
			strconv.FormatFloat(e.Onset, 'f', 3, 64),
			strconv.FormatFloat(e.Offset, 'f', 3, 64),
			e.Label,
			strconv.FormatFloat(e.Score, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadWeak reads a weakly labeled TSV, expanding comma-joined tag sets into
// one zero-length event row per (clip, label).
func LoadWeak(path string) (EventTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weak labels: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading %s: empty file", path)
	}

	col := columnIndex(rows[0])
	var table EventTable
	for _, row := range rows[1:] {
		name := field(row, col, "filename")
		if name == "" {
			continue
		}
		labels := field(row, col, "event_labels")
		if labels == "" {
			table = append(table, Event{Filename: name})
			continue
		}
		for _, l := range strings.Split(labels, ",") {
			if l = strings.TrimSpace(l); l != "" {
				table = append(table, Event{Filename: name, Label: l})
			}
		}
	}
	return table, nil
}

// LoadDurationsTSV reads duration metadata from a TSV with columns
// filename and duration (seconds).
func LoadDurationsTSV(path string) (DurationTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open durations: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading %s: empty file", path)
	}

	col := columnIndex(rows[0])
	table := make(DurationTable)
	for i, row := range rows[1:] {
		name := field(row, col, "filename")
		if name == "" {
			continue
		}
		d, err := floatField(row, col, "duration")
		if err != nil {
			return nil, fmt.Errorf("reading %s row %d: %w", path, i+2, err)
		}
		table[name] = d
	}
	return table, nil
}

// LoadDurationsWAV builds duration metadata by reading the WAV headers of
// every .wav file directly under dir. Filenames are the base names, matching
// the filename column of event tables.
func LoadDurationsWAV(dir string) (DurationTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	table := make(DurationTable)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		d, err := wavDuration(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		table[entry.Name()] = d
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no wav files under %s", dir)
	}
	return table, nil
}

// wavDuration returns one clip's duration in seconds from its WAV header.
func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("not a valid WAV file")
	}
	dur, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return dur.Seconds(), nil
}

// Filenames returns the metadata filenames in sorted order.
func (d DurationTable) Filenames() []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// columnIndex maps header names to positions.
func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return col
}

// field returns a column value or "" when the column is absent.
func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// floatField parses a numeric column, treating absence as zero.
func floatField(row []string, col map[string]int, name string) (float64, error) {
	s := field(row, col, name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}
