package authz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type slowStore struct {
	mu      sync.Mutex
	delay   time.Duration
	snap    Snapshot
	err     error
	release chan struct{}
}

func (s *slowStore) Load(ctx context.Context, userID int64) (Snapshot, error) {
	s.mu.Lock()
	release := s.release
	delay := s.delay
	s.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	} else if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.err
}

func TestGuardLoadingThenSingleDecision(t *testing.T) {
	store := &slowStore{release: make(chan struct{}), snap: Snapshot{Roles: []Role{RoleTeacher}}}
	cache := NewSnapshotCache(store)

	in := GuardInput{Authenticated: true, Loading: true}
	if got := EvaluatePermissions(in, []Permission{PermFeesManage}, ModeAny); got != Loading {
		t.Fatalf("before resolution: got %s, want loading", got)
	}

	done := make(chan Decision, 1)
	go func() {
		snap, err := cache.Get(context.Background(), 1)
		resolved := GuardInput{
			Authenticated: true,
			StoreErr:      err,
			Roles:         snap.Roles,
			StaffRoles:    snap.StaffRoles,
			Permissions:   ResolvePermissions(snap.Roles),
		}
		done <- EvaluatePermissions(resolved, []Permission{PermFeesManage}, ModeAny)
	}()

	select {
	case d := <-done:
		t.Fatalf("decision %s arrived before the store resolved", d)
	case <-time.After(20 * time.Millisecond):
	}

	close(store.release)
	select {
	case d := <-done:
		if d != Denied {
			t.Fatalf("teacher requesting fees.manage: got %s, want denied", d)
		}
	case <-time.After(time.Second):
		t.Fatal("guard never decided")
	}
}

func TestPermissionGuardEndToEnd(t *testing.T) {
	teacher := GuardInput{
		Authenticated: true,
		Roles:         []Role{RoleTeacher},
		Permissions:   ResolvePermissions([]Role{RoleTeacher}),
	}
	if got := EvaluatePermissions(teacher, []Permission{PermFeesManage}, ModeAny); got != Denied {
		t.Fatalf("teacher fees.manage: got %s, want denied", got)
	}

	admin := GuardInput{
		Authenticated: true,
		Roles:         []Role{RoleAdmin},
		Permissions:   ResolvePermissions([]Role{RoleAdmin}),
	}
	if got := EvaluatePermissions(admin, []Permission{PermFeesManage}, ModeAny); got != Allowed {
		t.Fatalf("admin fees.manage: got %s, want allowed", got)
	}
}

func TestAuthGuard(t *testing.T) {
	if got := EvaluateAuth(GuardInput{}); got != Denied {
		t.Fatalf("anonymous: got %s, want denied", got)
	}
	if got := EvaluateAuth(GuardInput{Authenticated: true}); got != Allowed {
		t.Fatalf("authenticated: got %s, want allowed", got)
	}
}

func TestRoleGuardMatchesEitherAxis(t *testing.T) {
	in := GuardInput{
		Authenticated: true,
		Roles:         []Role{RoleStaff},
		StaffRoles:    []StaffRole{"Principal"},
	}
	if got := EvaluateRoles(in, []string{"principal"}, ModeAny); got != Allowed {
		t.Fatalf("staff-role axis should satisfy ANY mode, got %s", got)
	}
	if got := EvaluateRoles(in, []string{"staff"}, ModeAny); got != Allowed {
		t.Fatalf("coarse-role axis should satisfy ANY mode, got %s", got)
	}
	if got := EvaluateRoles(in, []string{"hod"}, ModeAny); got != Denied {
		t.Fatalf("unmatched name should deny, got %s", got)
	}
}

func TestRoleGuardAllMode(t *testing.T) {
	in := GuardInput{
		Authenticated: true,
		Roles:         []Role{RoleStaff, RoleTeacher},
		StaffRoles:    []StaffRole{"Form Master"},
	}
	if got := EvaluateRoles(in, []string{"staff", "form master"}, ModeAll); got != Allowed {
		t.Fatalf("full containment across axes should pass, got %s", got)
	}
	if got := EvaluateRoles(in, []string{"staff", "principal"}, ModeAll); got != Denied {
		t.Fatalf("partial containment should deny in ALL mode, got %s", got)
	}
}

func TestGuardFailsClosedOnStoreError(t *testing.T) {
	in := GuardInput{
		Authenticated: true,
		StoreErr:      errors.New("backend unavailable"),
		Permissions:   ResolvePermissions([]Role{RoleAdmin}),
	}
	if got := EvaluatePermissions(in, []Permission{PermDashboardView}, ModeAny); got != Denied {
		t.Fatalf("store error must deny, got %s", got)
	}
	if got := EvaluateRoles(in, []string{"admin"}, ModeAny); got != Denied {
		t.Fatalf("store error must deny role guard, got %s", got)
	}
}

func TestSnapshotCacheDiscardsStaleFetch(t *testing.T) {
	firstRelease := make(chan struct{})
	store := &slowStore{release: firstRelease, snap: Snapshot{Roles: []Role{RoleStudent}}}
	cache := NewSnapshotCache(store)

	firstDone := make(chan Snapshot, 1)
	go func() {
		snap, _ := cache.Refresh(context.Background(), 7)
		firstDone <- snap
	}()
	time.Sleep(10 * time.Millisecond)

	// A newer refresh starts and completes while the first is in flight.
	store.mu.Lock()
	store.snap = Snapshot{Roles: []Role{RoleAdmin}}
	store.release = nil
	store.mu.Unlock()
	if _, err := cache.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	store.mu.Lock()
	store.snap = Snapshot{Roles: []Role{RoleStudent}}
	store.mu.Unlock()
	close(firstRelease)
	<-firstDone

	snap, err := cache.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(snap.Roles) != 1 || snap.Roles[0] != RoleAdmin {
		t.Fatalf("stale fetch overwrote newer snapshot: %v", snap.Roles)
	}
}

func TestSnapshotCacheKeepsLastValueOnError(t *testing.T) {
	store := &slowStore{snap: Snapshot{Roles: []Role{RoleTeacher}}}
	cache := NewSnapshotCache(store)
	if _, err := cache.Refresh(context.Background(), 3); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	store.mu.Lock()
	store.err = errors.New("network down")
	store.mu.Unlock()
	if _, err := cache.Refresh(context.Background(), 3); err == nil {
		t.Fatal("expected refresh error")
	}

	// Error state is sticky: Get retries the store rather than serving the
	// stale snapshot as if it were fresh.
	if _, err := cache.Get(context.Background(), 3); err == nil {
		t.Fatal("expected get to surface the store error")
	}

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	snap, err := cache.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("get after recovery: %v", err)
	}
	if len(snap.Roles) != 1 || snap.Roles[0] != RoleTeacher {
		t.Fatalf("unexpected roles after recovery: %v", snap.Roles)
	}
}

func TestRetryingStoreRecovers(t *testing.T) {
	store := &flakyStore{failures: 2, snap: Snapshot{Roles: []Role{RoleParent}}}
	retrying := &RetryingStore{Inner: store, Attempts: 3, Backoff: time.Millisecond}
	snap, err := retrying.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Roles) != 1 || snap.Roles[0] != RoleParent {
		t.Fatalf("unexpected snapshot: %v", snap.Roles)
	}
	if store.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.calls)
	}
}

func TestRetryingStoreDoesNotRetryUnknownRole(t *testing.T) {
	store := &flakyStore{failures: 10, err: ErrUnknownRole}
	retrying := &RetryingStore{Inner: store, Attempts: 3, Backoff: time.Millisecond}
	if _, err := retrying.Load(context.Background(), 1); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected unknown role error, got %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("unknown role should not retry, got %d calls", store.calls)
	}
}

type flakyStore struct {
	failures int
	calls    int
	snap     Snapshot
	err      error
}

func (s *flakyStore) Load(ctx context.Context, userID int64) (Snapshot, error) {
	s.calls++
	if s.calls <= s.failures {
		if s.err != nil {
			return Snapshot{}, s.err
		}
		return Snapshot{}, errors.New("transient failure")
	}
	return s.snap, nil
}
