package table

import (
	"reflect"
	"testing"
)

func TestNewPadsAndTruncates(t *testing.T) {
	tbl := New([]string{"a", "b"}, [][]string{{"1"}, {"1", "2", "3"}})

	if got := tbl.Row(0); !reflect.DeepEqual(got, []string{"1", ""}) {
		t.Errorf("Row(0) = %v, want [1 \"\"]", got)
	}
	if got := tbl.Row(1); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("Row(1) = %v, want [1 2]", got)
	}
}

func TestValueMissingColumn(t *testing.T) {
	tbl := New([]string{"a"}, [][]string{{"x"}})

	if got := tbl.Value(0, "missing"); got != "" {
		t.Errorf("Value(missing) = %q, want empty", got)
	}
	if got := tbl.Value(5, "a"); got != "" {
		t.Errorf("Value(out of range) = %q, want empty", got)
	}
	if got := tbl.Column("missing"); len(got) != 1 || got[0] != "" {
		t.Errorf("Column(missing) = %v, want one blank", got)
	}
}

func TestValueEmptyColumnName(t *testing.T) {
	tbl := New([]string{"", "a"}, [][]string{{"0", "x"}})

	if got := tbl.Value(0, ""); got != "" {
		t.Errorf("Value(0, \"\") = %q, want empty", got)
	}
	if got := tbl.MapColumn("", func(string) string { return "changed" }).Row(0); !reflect.DeepEqual(got, []string{"0", "x"}) {
		t.Errorf("MapColumn(\"\") row = %v, want [0 x]", got)
	}
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	if tbl.Len() != 0 {
		t.Errorf("nil Len() = %d, want 0", tbl.Len())
	}
	if tbl.Has("a") {
		t.Error("nil Has() = true, want false")
	}
	if got := tbl.Clone(); got.Len() != 0 {
		t.Errorf("nil Clone().Len() = %d, want 0", got.Len())
	}
}

func TestWithColumnDoesNotMutate(t *testing.T) {
	orig := New([]string{"a"}, [][]string{{"1"}, {"2"}})

	added := orig.WithColumn("b", []string{"x"})
	if orig.Has("b") {
		t.Fatal("WithColumn mutated its receiver")
	}
	if got := added.Column("b"); !reflect.DeepEqual(got, []string{"x", ""}) {
		t.Errorf("Column(b) = %v, want [x \"\"]", got)
	}

	replaced := added.WithColumn("a", []string{"9", "8"})
	if got := added.Column("a"); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("source column changed to %v", got)
	}
	if got := replaced.Column("a"); !reflect.DeepEqual(got, []string{"9", "8"}) {
		t.Errorf("Column(a) = %v, want [9 8]", got)
	}
	if got := len(replaced.Columns()); got != 2 {
		t.Errorf("len(Columns()) = %d, want 2", got)
	}
}

func TestFilterSelectProject(t *testing.T) {
	tbl := New([]string{"a", "b"}, [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}})

	odd := tbl.Filter(func(i int) bool { return i%2 == 0 })
	if got := odd.Column("a"); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("Filter = %v, want [1 3]", got)
	}

	sel := tbl.Select([]int{2, 0, 7})
	if got := sel.Column("b"); !reflect.DeepEqual(got, []string{"z", "x"}) {
		t.Errorf("Select = %v, want [z x]", got)
	}

	proj := tbl.Project("b", "c")
	if got := proj.Row(1); !reflect.DeepEqual(got, []string{"y", ""}) {
		t.Errorf("Project row = %v, want [y \"\"]", got)
	}
}

func TestRecordFirstDuplicateWins(t *testing.T) {
	tbl := New([]string{"a", "a"}, [][]string{{"first", "second"}})
	if got := tbl.Record(0)["a"]; got != "first" {
		t.Errorf("Record()[a] = %q, want first", got)
	}
	if got := tbl.Value(0, "a"); got != "first" {
		t.Errorf("Value(a) = %q, want first", got)
	}
}
