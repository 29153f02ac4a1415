package search

import (
	"testing"

	"github.com/kailas-cloud/serp/internal/domain/search/result"
)

func TestGroupByHostname(t *testing.T) {
	in := []result.Result{
		{ID: "1", TargetHostname: "a.com"},
		{ID: "2", TargetHostname: "b.com"},
		{ID: "3", TargetHostname: "a.com"},
		{ID: "4", TargetHostname: ""},
		{ID: "5", TargetHostname: ""},
		{ID: "6", TargetHostname: "a.com"},
		{ID: "7", TargetHostname: "c.com"},
	}
	out := GroupByHostname(in)

	wantIDs := []string{"1", "2", "4", "5", "7"}
	if len(out) != len(wantIDs) {
		t.Fatalf("len = %d, want %d", len(out), len(wantIDs))
	}
	for i, id := range wantIDs {
		if out[i].ID != id {
			t.Errorf("out[%d].ID = %q, want %q", i, out[i].ID, id)
		}
	}
	if !out[0].GroupingSuggested() {
		t.Error("a.com representative should suggest grouping")
	}
	for _, r := range out[1:] {
		if r.GroupingSuggested() {
			t.Errorf("result %s should not suggest grouping", r.ID)
		}
	}

	hosts := make(map[string]int)
	for _, r := range out {
		if r.TargetHostname != "" {
			hosts[r.TargetHostname]++
		}
	}
	for h, n := range hosts {
		if n > 1 {
			t.Errorf("host %s appears %d times", h, n)
		}
	}
}

func TestGroupByHostname_Empty(t *testing.T) {
	if out := GroupByHostname(nil); len(out) != 0 {
		t.Errorf("GroupByHostname(nil) = %v", out)
	}
}
