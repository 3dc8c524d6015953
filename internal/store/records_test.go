package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "knowledge.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndGetRecord(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnsureProject("proj-1", "/tmp/app", "abc", ""); err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}

	rec, err := s.AddRecord(AddRecordInput{
		ProjectID:   "proj-1",
		Kind:        KindInsight,
		Title:       "auth module",
		Body:        "JWT middleware validates tokens in internal/auth.",
		BodyTokens:  12,
		PartitionID: "P001",
	})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	got, err := s.GetRecord("proj-1", rec.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Title != "auth module" || got.PartitionID != "P001" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestSearchRecordsScopedToProject(t *testing.T) {
	s := openTestStore(t)

	for _, rec := range []AddRecordInput{
		{ProjectID: "proj-a", Kind: KindInsight, Title: "database layer", Body: "sqlite store with WAL"},
		{ProjectID: "proj-a", Kind: KindInsight, Title: "http handlers", Body: "routes for the REST api"},
		{ProjectID: "proj-b", Kind: KindInsight, Title: "database schema", Body: "postgres migrations"},
	} {
		if _, err := s.AddRecord(rec); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}

	hits, err := s.SearchRecords("proj-a", "database", 10)
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Title != "database layer" {
		t.Fatalf("unexpected hit %q", hits[0].Title)
	}
}

func TestSearchRecordsQuotesQuery(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.AddRecord(AddRecordInput{ProjectID: "p", Kind: KindInsight, Title: "a", Body: "b"}); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	// FTS operators in user input must not produce a syntax error.
	if _, err := s.SearchRecords("p", `NEAR( "unbalanced`, 5); err != nil {
		t.Fatalf("SearchRecords with hostile query: %v", err)
	}

	hits, err := s.SearchRecords("p", "   ", 5)
	if err != nil {
		t.Fatalf("SearchRecords blank: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected no hits for blank query, got %d", len(hits))
	}
}

func TestListRecordsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := s.AddRecord(AddRecordInput{
			ProjectID: "p",
			Kind:      KindKnowledge,
			Title:     title,
			Body:      "body",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}

	recs, err := s.ListRecords("p", 2)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Title != "third" || recs[1].Title != "second" {
		t.Fatalf("unexpected order: %q, %q", recs[0].Title, recs[1].Title)
	}
}

func TestDeleteRecord(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.AddRecord(AddRecordInput{ProjectID: "p", Kind: KindInsight, Title: "gone", Body: "soon"})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	deleted, err := s.DeleteRecord("p", rec.ID)
	if err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	deleted, err = s.DeleteRecord("p", rec.ID)
	if err != nil {
		t.Fatalf("DeleteRecord second: %v", err)
	}
	if deleted {
		t.Fatal("expected no-op on second delete")
	}

	hits, err := s.SearchRecords("p", "gone", 5)
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("deleted record still searchable: %d hits", len(hits))
	}
}
