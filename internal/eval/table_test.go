package eval

import (
	"reflect"
	"testing"

	"github.com/jamesainslie/go-sed/decode"
)

func TestEventTable_Filenames(t *testing.T) {
	table := EventTable{
		{Filename: "b.wav", Label: "dog"},
		{Filename: "a.wav", Label: "cat"},
		{Filename: "b.wav", Label: "cat"},
	}
	want := []string{"b.wav", "a.wav"}
	if got := table.Filenames(); !reflect.DeepEqual(got, want) {
		t.Errorf("Filenames() = %v, want %v", got, want)
	}
}

func TestEventTable_FileEvents_NoEventMarker(t *testing.T) {
	table := EventTable{
		{Filename: "empty.wav"},
		{Filename: "full.wav", Label: "dog", Onset: 0, Offset: 1},
	}

	// A single row with an empty label means "no events in this clip".
	if got := table.FileEvents("empty.wav"); len(got) != 0 {
		t.Errorf("FileEvents(empty.wav) = %v, want none", got)
	}
	if got := table.FileEvents("full.wav"); len(got) != 1 {
		t.Errorf("FileEvents(full.wav) = %v, want one event", got)
	}
}

func TestClasses(t *testing.T) {
	ref := EventTable{
		{Filename: "a.wav", Label: "speech"},
		{Filename: "a.wav"},
	}
	est := EventTable{
		{Filename: "a.wav", Label: "dog"},
		{Filename: "b.wav", Label: "speech"},
	}
	want := []string{"dog", "speech"}
	if got := Classes(ref, est); !reflect.DeepEqual(got, want) {
		t.Errorf("Classes = %v, want %v", got, want)
	}
}

func TestFormatWeak(t *testing.T) {
	dec, err := decode.New([]string{"cat", "dog"})
	if err != nil {
		t.Fatalf("decode.New failed: %v", err)
	}

	table := EventTable{
		{Filename: "a.wav", Label: "dog", Onset: 0, Offset: 1},
		{Filename: "a.wav", Label: "dog", Onset: 2, Offset: 3}, // duplicate label
		{Filename: "a.wav", Label: "cat", Onset: 4, Offset: 5},
		{Filename: "b.wav"}, // missing label dropped
	}

	weak := FormatWeak(table, dec)
	want := ClipTable{
		{Filename: "a.wav", Labels: []int{1, 1}},
		{Filename: "b.wav", Labels: []int{0, 0}},
	}
	if !reflect.DeepEqual(weak, want) {
		t.Errorf("FormatWeak = %v, want %v", weak, want)
	}
}

func TestFormatWeak_OrderIndependent(t *testing.T) {
	dec, err := decode.New([]string{"cat", "dog"})
	if err != nil {
		t.Fatalf("decode.New failed: %v", err)
	}

	a := EventTable{
		{Filename: "a.wav", Label: "dog", Onset: 0, Offset: 1},
		{Filename: "a.wav", Label: "cat", Onset: 2, Offset: 3},
	}
	b := EventTable{a[1], a[0]}

	if !reflect.DeepEqual(FormatWeak(a, dec), FormatWeak(b, dec)) {
		t.Error("FormatWeak should not depend on row order within a clip")
	}
}

func TestOuterJoin(t *testing.T) {
	ref := ClipTable{
		{Filename: "a.wav", Labels: []int{1, 0}},
		{Filename: "b.wav", Labels: []int{0, 1}},
	}
	est := ClipTable{
		{Filename: "b.wav", Labels: []int{1, 1}},
		{Filename: "c.wav", Labels: []int{1, 0}},
	}

	refM, estM := OuterJoin(ref, est, 2)

	wantRef := [][]int{{1, 0}, {0, 1}, {0, 0}}
	wantEst := [][]int{{0, 0}, {1, 1}, {1, 0}}
	if !reflect.DeepEqual(refM, wantRef) {
		t.Errorf("refM = %v, want %v", refM, wantRef)
	}
	if !reflect.DeepEqual(estM, wantEst) {
		t.Errorf("estM = %v, want %v", estM, wantEst)
	}
}
