package audit

import (
	"context"
	"strings"
	"testing"
	"time"
)

type stubStore struct {
	rows       []Entry
	lastLimit  int
	lastOffset int
	lastFilter Filters
}

func (s *stubStore) Timeline(_ context.Context, f Filters, limit, offset int) ([]Entry, error) {
	s.lastFilter = f
	s.lastLimit = limit
	s.lastOffset = offset
	if limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *stubStore) TimelineAll(_ context.Context, f Filters) ([]Entry, error) {
	s.lastFilter = f
	return s.rows, nil
}

func entryAt(day int, action string) Entry {
	return Entry{
		At:         time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC),
		ActorID:    7,
		ActorEmail: "admin@school.test",
		Action:     action,
		Entity:     "student",
		EntityID:   "1",
	}
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubStore{rows: []Entry{
		entryAt(10, "student.update"),
		entryAt(9, "student.update"),
		entryAt(8, "student.create"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if result.Paging.NextPage != 2 {
		t.Fatalf("expected next page 2, got %d", result.Paging.NextPage)
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected window limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubStore{}
	svc := NewService(repo)

	if _, err := svc.Timeline(context.Background(), Filters{PageSize: 500}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastLimit != maxPageSize+1 {
		t.Fatalf("expected limit %d, got %d", maxPageSize+1, repo.lastLimit)
	}

	if _, err := svc.Timeline(context.Background(), Filters{Page: 3}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastOffset != 2*defaultPageSize {
		t.Fatalf("expected offset %d, got %d", 2*defaultPageSize, repo.lastOffset)
	}
}

func TestExportCSV(t *testing.T) {
	repo := &stubStore{rows: []Entry{entryAt(10, "fees.payment")}}
	svc := NewService(repo)

	data, err := svc.ExportCSV(context.Background(), Filters{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "occurred_at,actor_id") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "fees.payment") {
		t.Fatalf("expected action in row, got: %s", lines[1])
	}
}
