package domain

import "testing"

func TestNewTaskStats_CompletionRate(t *testing.T) {
	cases := []struct {
		name   string
		counts TaskCounts
		want   float64
	}{
		{"empty", TaskCounts{}, 0},
		{"all done", TaskCounts{Total: 1, Done: 1}, 100},
		{"none done", TaskCounts{Total: 1, Pending: 1}, 0},
		{"thirds", TaskCounts{Total: 3, Done: 1, Pending: 2}, 33.33},
		{"two thirds", TaskCounts{Total: 3, Done: 2, Pending: 1}, 66.67},
	}

	for _, tc := range cases {
		got := NewTaskStats(tc.counts)
		if got.CompletionRate != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got.CompletionRate)
		}
		if got.Total != tc.counts.Total || got.Done != tc.counts.Done {
			t.Errorf("%s: counts not carried over: %+v", tc.name, got)
		}
	}
}

func TestTaskStatus_Valid(t *testing.T) {
	for _, s := range []TaskStatus{StatusPending, StatusDone} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []TaskStatus{"", "archived", "DONE"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestTaskPatch_Empty(t *testing.T) {
	if !(TaskPatch{}).Empty() {
		t.Fatal("zero patch must be empty")
	}
	title := "x"
	if (TaskPatch{Title: &title}).Empty() {
		t.Fatal("patch with title must not be empty")
	}
}
