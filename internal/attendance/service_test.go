package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

type stubStore struct {
	saved   []Record
	classID int64
	date    time.Time
	calls   int
	err     error
}

func (s *stubStore) Register(context.Context, int64, time.Time) ([]RegisterRow, error) {
	return nil, nil
}

func (s *stubStore) SaveRegister(_ context.Context, classID int64, date time.Time, _ int64, entries []Record) error {
	s.calls++
	s.classID = classID
	s.date = date
	s.saved = entries
	return s.err
}

func (s *stubStore) StudentSummary(context.Context, int64, time.Time, time.Time) (Summary, error) {
	return Summary{}, nil
}

func (s *stubStore) StudentHistory(context.Context, int64, int) ([]Record, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *stubStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := &stubStore{}
	return NewService(store, rdb, nil, nil), store, mr
}

func TestRecordRegisterSavesEntries(t *testing.T) {
	svc, store, _ := newTestService(t)

	req := RecordRegisterRequest{
		ClassID: 7,
		Date:    "2026-03-02",
		Entries: []EntryInput{
			{StudentID: 1, Status: "present"},
			{StudentID: 2, Status: "absent", Note: "sick"},
		},
	}
	if err := svc.RecordRegister(context.Background(), req, 42); err != nil {
		t.Fatalf("RecordRegister: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected one save, got %d", store.calls)
	}
	if store.classID != 7 {
		t.Fatalf("classID = %d, want 7", store.classID)
	}
	if got := store.date.Format("2006-01-02"); got != "2026-03-02" {
		t.Fatalf("date = %s, want 2026-03-02", got)
	}
	if len(store.saved) != 2 {
		t.Fatalf("saved %d entries, want 2", len(store.saved))
	}
	if store.saved[1].Status != StatusAbsent {
		t.Fatalf("status = %s, want absent", store.saved[1].Status)
	}
	if store.saved[1].Note == nil || *store.saved[1].Note != "sick" {
		t.Fatalf("note not carried through")
	}
}

func TestRecordRegisterRejectsUnknownStatus(t *testing.T) {
	svc, store, _ := newTestService(t)

	req := RecordRegisterRequest{
		ClassID: 7,
		Date:    "2026-03-02",
		Entries: []EntryInput{{StudentID: 1, Status: "vanished"}},
	}
	if err := svc.RecordRegister(context.Background(), req, 42); err == nil {
		t.Fatal("expected validation error")
	}
	if store.calls != 0 {
		t.Fatalf("store called %d times on invalid input", store.calls)
	}
}

func TestRecordRegisterLockContention(t *testing.T) {
	svc, store, mr := newTestService(t)

	mr.Set(shared.AttendanceLockKey(7, "2026-03-02"), "99")

	req := RecordRegisterRequest{
		ClassID: 7,
		Date:    "2026-03-02",
		Entries: []EntryInput{{StudentID: 1, Status: "present"}},
	}
	err := svc.RecordRegister(context.Background(), req, 42)
	if err != ErrRegisterLocked {
		t.Fatalf("err = %v, want ErrRegisterLocked", err)
	}
	if store.calls != 0 {
		t.Fatal("store must not be touched while locked")
	}
}

func TestRecordRegisterReleasesLock(t *testing.T) {
	svc, _, mr := newTestService(t)

	req := RecordRegisterRequest{
		ClassID: 7,
		Date:    "2026-03-02",
		Entries: []EntryInput{{StudentID: 1, Status: "late"}},
	}
	if err := svc.RecordRegister(context.Background(), req, 42); err != nil {
		t.Fatalf("RecordRegister: %v", err)
	}
	if mr.Exists(shared.AttendanceLockKey(7, "2026-03-02")) {
		t.Fatal("lock not released after save")
	}
}

func TestSummaryTotal(t *testing.T) {
	s := Summary{Present: 40, Absent: 3, Late: 2, Excused: 1}
	if s.Total() != 46 {
		t.Fatalf("Total = %d, want 46", s.Total())
	}
}
