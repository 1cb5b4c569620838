package match_test

import (
	"testing"

	"github.com/crewtrack/fieldvoice/internal/match"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

func TestProject_DirectContainment(t *testing.T) {
	t.Parallel()

	projects := []types.RosterEntry{
		{ID: "p1", Name: "Smith House", Status: "active"},
		{ID: "p2", Name: "Oak Street Duplex", Status: "active"},
	}

	got := match.Project("log 4 hours framing at smith house", projects)
	if got == nil {
		t.Fatal("Project() = nil, want match")
	}
	if got.ID != "p1" {
		t.Errorf("Project().ID = %q, want p1", got.ID)
	}
	if got.Confidence < 0.9 {
		t.Errorf("Project().Confidence = %f, want >= 0.9", got.Confidence)
	}
}

func TestProject_FuzzyName(t *testing.T) {
	t.Parallel()

	projects := []types.RosterEntry{
		{ID: "p1", Name: "Smith House", Status: "active"},
	}

	// Misheard surname still resolves via edit distance on the tail.
	got := match.Project("worked at the smyth house", projects)
	if got == nil {
		t.Fatal("Project() = nil, want fuzzy match")
	}
	if got.ID != "p1" {
		t.Errorf("Project().ID = %q, want p1", got.ID)
	}
}

func TestProject_LiveStatusFilter(t *testing.T) {
	t.Parallel()

	projects := []types.RosterEntry{
		{ID: "done", Name: "Smith House", Status: "completed"},
		{ID: "live", Name: "Smith House Phase 2", Status: "active"},
	}

	got := match.Project("framing at smith house", projects)
	if got == nil {
		t.Fatal("Project() = nil, want match")
	}
	if got.ID != "live" {
		t.Errorf("Project().ID = %q, want live project preferred over completed", got.ID)
	}
}

func TestProject_FallsBackToFullRoster(t *testing.T) {
	t.Parallel()

	// No live statuses at all: the completed project is still searchable.
	projects := []types.RosterEntry{
		{ID: "done", Name: "Smith House", Status: "completed"},
	}

	got := match.Project("punch list at smith house", projects)
	if got == nil || got.ID != "done" {
		t.Fatalf("Project() = %+v, want fallback match on full roster", got)
	}
}

func TestProject_NoMatch(t *testing.T) {
	t.Parallel()

	projects := []types.RosterEntry{
		{ID: "p1", Name: "Riverside Apartments", Status: "active"},
	}
	if got := match.Project("worked on paperwork all day", projects); got != nil {
		t.Errorf("Project() = %+v, want nil", got)
	}
}

func TestProject_EmptyRoster(t *testing.T) {
	t.Parallel()

	if got := match.Project("anything", nil); got != nil {
		t.Errorf("Project() = %+v, want nil for empty roster", got)
	}
}

func TestTask_Match(t *testing.T) {
	t.Parallel()

	tasks := []types.RosterEntry{
		{ID: "t1", Name: "Drywall Installation", Status: "in_progress"},
		{ID: "t2", Name: "Rough Plumbing", Status: "pending"},
	}

	got := match.Task("drywall installation", tasks)
	if got == nil {
		t.Fatal("Task() = nil, want match")
	}
	if got.ID != "t1" {
		t.Errorf("Task().ID = %q, want t1", got.ID)
	}
	if got.Confidence < 0.9 {
		t.Errorf("Task().Confidence = %f, want >= 0.9", got.Confidence)
	}
}

func TestTask_NoMatch(t *testing.T) {
	t.Parallel()

	tasks := []types.RosterEntry{
		{ID: "t1", Name: "Drywall Installation"},
	}
	if got := match.Task("order more lumber", tasks); got != nil {
		t.Errorf("Task() = %+v, want nil", got)
	}
}

func TestTaskSuggestions(t *testing.T) {
	t.Parallel()

	tasks := []types.RosterEntry{
		{ID: "t1", Name: "Drywall Installation"},
		{ID: "t2", Name: "Drywall Finishing"},
		{ID: "t3", Name: "Rough Plumbing"},
		{ID: "t4", Name: "Drywall Delivery"},
	}

	got := match.TaskSuggestions("drywall", tasks, 0.3, 3)
	if len(got) == 0 {
		t.Fatal("TaskSuggestions() empty, want near misses")
	}
	if len(got) > 3 {
		t.Errorf("TaskSuggestions() returned %d entries, want <= 3", len(got))
	}
}

func TestActivity_Direct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"log 4 hours framing at smith house", "framing"},
		{"hung sheetrock all morning", "drywall"},
		{"poured the slab today", "concrete"},
		{"city inspector walkthrough", "inspection"},
	}
	for _, tc := range tests {
		got := match.Activity(tc.in)
		if got == nil {
			t.Errorf("Activity(%q) = nil, want %q", tc.in, tc.want)
			continue
		}
		if got.ID != tc.want {
			t.Errorf("Activity(%q).ID = %q, want %q", tc.in, got.ID, tc.want)
		}
		if got.Confidence < 0.9 {
			t.Errorf("Activity(%q).Confidence = %f, want >= 0.9", tc.in, got.Confidence)
		}
	}
}

func TestActivity_FuzzyToken(t *testing.T) {
	t.Parallel()

	// Transcription typo on a trade word.
	got := match.Activity("spent the day framius")
	if got != nil && got.ID != "framing" {
		t.Errorf("Activity(framius).ID = %q, want framing or nil", got.ID)
	}
}

func TestActivity_NoMatch(t *testing.T) {
	t.Parallel()

	if got := match.Activity("talked to the client about budget"); got != nil {
		// "meeting" keywords include "call with"; plain talk should not hit.
		t.Errorf("Activity() = %+v, want nil", got)
	}
}
