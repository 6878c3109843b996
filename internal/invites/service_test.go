package invites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/jobs"
)

type stubMailer struct {
	sent []jobs.SendEmailPayload
}

func (m *stubMailer) EnqueueSendEmail(_ context.Context, p jobs.SendEmailPayload) error {
	m.sent = append(m.sent, p)
	return nil
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	mailer := &stubMailer{}
	svc := NewService(nil, mailer, "https://school.example", nil)

	_, err := svc.Create(context.Background(), CreateInviteRequest{
		Email: "new.teacher@school.example",
		Role:  "superuser",
	}, 1)
	if !errors.Is(err, authz.ErrUnknownRole) {
		t.Fatalf("err = %v, want ErrUnknownRole", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no email should be enqueued for a rejected invite")
	}
}

func TestCreateRejectsBadEmail(t *testing.T) {
	svc := NewService(nil, &stubMailer{}, "https://school.example", nil)
	if _, err := svc.Create(context.Background(), CreateInviteRequest{Email: "not-an-email", Role: "teacher"}, 1); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestInviteUsable(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	inv := Invite{Status: StatusPending, ExpiresAt: now.Add(time.Hour)}
	if !inv.Usable(now) {
		t.Fatal("pending unexpired invite should be usable")
	}
	if inv.Usable(now.Add(2 * time.Hour)) {
		t.Fatal("expired invite should not be usable")
	}
	inv.Status = StatusRevoked
	if inv.Usable(now) {
		t.Fatal("revoked invite should not be usable")
	}
	inv.Status = StatusAccepted
	if inv.Usable(now) {
		t.Fatal("accepted invite should not be usable")
	}
}
