// Package eval computes sound event detection metrics: event-based,
// segment-based, audio tagging and PSDS scores.
package eval

import (
	"sort"

	"github.com/jamesainslie/go-sed/decode"
)

// Event is one row of a strongly labeled table: a reference or detected
// event in one audio clip. An empty Label marks a clip known to contain no
// events.
type Event struct {
	Filename string
	Label    string
	Onset    float64
	Offset   float64
	Score    float64
}

// Duration returns the event length in seconds.
func (e Event) Duration() float64 {
	return e.Offset - e.Onset
}

// EventTable is an ordered list of events for a dataset split.
type EventTable []Event

// Empty reports whether the table has no rows.
func (t EventTable) Empty() bool {
	return len(t) == 0
}

// Filenames returns the unique filenames in first-seen order.
func (t EventTable) Filenames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range t {
		if !seen[e.Filename] {
			seen[e.Filename] = true
			names = append(names, e.Filename)
		}
	}
	return names
}

// ForFile returns the rows belonging to one clip, in table order.
func (t EventTable) ForFile(name string) EventTable {
	var rows EventTable
	for _, e := range t {
		if e.Filename == name {
			rows = append(rows, e)
		}
	}
	return rows
}

// FileEvents returns the events of one clip, treating a single row with an
// empty label as "clip contains no events".
func (t EventTable) FileEvents(name string) []Event {
	rows := t.ForFile(name)
	if len(rows) == 1 && rows[0].Label == "" {
		return nil
	}
	return rows
}

// Classes returns the sorted union of non-empty labels across tables.
func Classes(tables ...EventTable) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, t := range tables {
		for _, e := range t {
			if e.Label != "" && !seen[e.Label] {
				seen[e.Label] = true
				classes = append(classes, e.Label)
			}
		}
	}
	sort.Strings(classes)
	return classes
}

// ClipRecord is one row of a weakly labeled table: a clip and its tag set as
// a multi-hot vector.
type ClipRecord struct {
	Filename string
	Labels   []int
}

// ClipTable is an ordered list of clip records.
type ClipTable []ClipRecord

// FormatWeak converts a strongly labeled table into a weak one by grouping
// rows per clip, deduplicating labels, dropping missing ones and multi-hot
// encoding the label set. Row order within a clip is irrelevant; clips keep
// first-seen order.
func FormatWeak(t EventTable, dec *decode.Decoder) ClipTable {
	var out ClipTable
	for _, name := range t.Filenames() {
		seen := make(map[string]bool)
		var labels []string
		for _, e := range t.ForFile(name) {
			if e.Label == "" || seen[e.Label] {
				continue
			}
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
		out = append(out, ClipRecord{Filename: name, Labels: dec.EncodeWeak(labels)})
	}
	return out
}

// OuterJoin aligns two clip tables on filename and returns paired multi-hot
// matrices. A clip present on only one side contributes a zero vector of
// width classes on the other side. Reference rows come first, then
// estimate-only rows in their table order.
func OuterJoin(ref, est ClipTable, classes int) (refM, estM [][]int) {
	estByName := make(map[string][]int, len(est))
	for _, r := range est {
		estByName[r.Filename] = r.Labels
	}
	refNames := make(map[string]bool, len(ref))

	for _, r := range ref {
		refNames[r.Filename] = true
		refM = append(refM, padVec(r.Labels, classes))
		estM = append(estM, padVec(estByName[r.Filename], classes))
	}
	for _, r := range est {
		if refNames[r.Filename] {
			continue
		}
		refM = append(refM, make([]int, classes))
		estM = append(estM, padVec(r.Labels, classes))
	}
	return refM, estM
}

// padVec returns v extended or truncated to width n; nil yields a zero vector.
func padVec(v []int, n int) []int {
	out := make([]int, n)
	copy(out, v)
	return out
}
