package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/policyscout/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Path() != filepath.Join(dir, "policyscout.db") {
		t.Errorf("Path = %q", s.Path())
	}
	if _, err := s.CreateInstitution(ctx, model.Institution{Name: "MIT"}); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = NewStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	all, err := s.ListInstitutions(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListInstitutions = %v, %v", all, err)
	}
}

func TestInstitutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mit, err := s.CreateInstitution(ctx, model.Institution{Name: "MIT", Website: "mit.edu", Country: "US"})
	if err != nil {
		t.Fatalf("CreateInstitution: %v", err)
	}
	if mit.ID == 0 || mit.LastUpdated.IsZero() {
		t.Errorf("created = %+v", mit)
	}
	if _, err := s.CreateInstitution(ctx, model.Institution{Name: "Stanford University"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateInstitution(ctx, model.Institution{Name: "mit"}); err == nil {
		t.Error("duplicate name accepted")
	}
	if _, err := s.CreateInstitution(ctx, model.Institution{Name: "  "}); err == nil {
		t.Error("empty name accepted")
	}

	got, err := s.GetInstitution(ctx, mit.ID)
	if err != nil || got.Website != "mit.edu" || got.Country != "US" {
		t.Errorf("GetInstitution = %+v, %v", got, err)
	}
	if _, err := s.GetInstitution(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}
	if found, err := s.FindInstitution(ctx, "Stanford University"); err != nil || found.Name != "Stanford University" {
		t.Errorf("FindInstitution = %+v, %v", found, err)
	}

	all, _ := s.ListInstitutions(ctx)
	if len(all) != 2 || all[0].Name != "MIT" {
		t.Errorf("ListInstitutions = %+v", all)
	}

	hits, err := s.SearchInstitutions(ctx, "stan")
	if err != nil || len(hits) != 1 || hits[0].Name != "Stanford University" {
		t.Errorf("SearchInstitutions = %+v, %v", hits, err)
	}
	if hits, _ := s.SearchInstitutions(ctx, "%"); len(hits) != 0 {
		t.Errorf("wildcard not escaped: %+v", hits)
	}

	when := time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC)
	if err := s.UpdateSummary(ctx, mit.ID, "new summary", when); err != nil {
		t.Fatalf("UpdateSummary: %v", err)
	}
	got, _ = s.GetInstitution(ctx, mit.ID)
	if got.Summary != "new summary" || !got.LastUpdated.Equal(when) {
		t.Errorf("after update = %+v", got)
	}
	if err := s.UpdateSummary(ctx, 999, "x", when); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}
}

func TestSaveResearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst, err := s.CreateInstitution(ctx, model.Institution{Name: "Uni"})
	if err != nil {
		t.Fatal(err)
	}

	when := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	implemented := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	result := &model.ResearchResult{
		Summary: "Uni summary",
		Policies: []model.PolicyRecord{
			{Category: "teaching", Title: "Coursework", Content: "a", Status: model.StatusActive, LastUpdated: when, ImplementationDate: &implemented},
			{Category: "research", Title: "Research Use", Content: "b", Status: model.StatusDraft, LastUpdated: when},
		},
		Sources: []model.SourceRecord{
			{URL: "https://uni.edu/a", Type: model.SourceWebpage, RetrievalDate: when, Metadata: model.SourceMetadata{Description: "A"}},
			{URL: "https://uni.edu/b", Type: model.SourceWebpage, RetrievalDate: when, Metadata: model.SourceMetadata{Description: "Policy document from https://uni.edu/b"}},
		},
	}

	if err := s.SaveResearch(ctx, inst.ID, result); err != nil {
		t.Fatalf("SaveResearch: %v", err)
	}

	policies, err := s.ListPolicies(ctx, inst.ID, "")
	if err != nil || len(policies) != 2 {
		t.Fatalf("ListPolicies = %v, %v", policies, err)
	}
	if policies[0].ImplementationDate == nil || !policies[0].ImplementationDate.Equal(implemented) {
		t.Errorf("implementation date = %v", policies[0].ImplementationDate)
	}
	if policies[1].ImplementationDate != nil || policies[1].Status != model.StatusDraft {
		t.Errorf("second policy = %+v", policies[1])
	}

	teaching, _ := s.ListPolicies(ctx, inst.ID, "teaching")
	if len(teaching) != 1 || teaching[0].Title != "Coursework" {
		t.Errorf("category filter = %+v", teaching)
	}

	sources, err := s.ListSources(ctx, inst.ID)
	if err != nil || len(sources) != 2 {
		t.Fatalf("ListSources = %v, %v", sources, err)
	}
	if sources[1].Metadata.Description != "Policy document from https://uni.edu/b" {
		t.Errorf("metadata = %+v", sources[1].Metadata)
	}

	var linked int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sources WHERE policy_id IS NOT NULL").Scan(&linked); err != nil || linked != 2 {
		t.Errorf("linked sources = %d, %v", linked, err)
	}

	got, _ := s.GetInstitution(ctx, inst.ID)
	if got.Summary != "Uni summary" {
		t.Errorf("summary = %q", got.Summary)
	}

	// a second save, as a daily refresh does, replaces rather than appends
	refreshed := &model.ResearchResult{
		Summary:  "Uni summary, refreshed",
		Policies: result.Policies[:1],
		Sources:  result.Sources[:1],
	}
	if err := s.SaveResearch(ctx, inst.ID, refreshed); err != nil {
		t.Fatalf("second SaveResearch: %v", err)
	}
	if policies, _ := s.ListPolicies(ctx, inst.ID, ""); len(policies) != 1 {
		t.Errorf("policies after refresh = %d, want 1", len(policies))
	}
	if sources, _ := s.ListSources(ctx, inst.ID); len(sources) != 1 {
		t.Errorf("sources after refresh = %d, want 1", len(sources))
	}

	if err := s.SaveResearch(ctx, 999, result); !errors.Is(err, ErrNotFound) {
		t.Errorf("save to missing institution err = %v", err)
	}
	if after, _ := s.ListPolicies(ctx, inst.ID, ""); len(after) != 1 {
		t.Errorf("failed save leaked rows: %d", len(after))
	}
}
