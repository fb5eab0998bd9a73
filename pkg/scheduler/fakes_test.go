package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sendlater/sendlater/pkg/mailer"
	"github.com/sendlater/sendlater/pkg/scheduler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEmailStore is an in-memory EmailStore.
type fakeEmailStore struct {
	mu     sync.Mutex
	emails map[uuid.UUID]*scheduler.Email

	createErr error
}

func newFakeEmailStore() *fakeEmailStore {
	return &fakeEmailStore{emails: make(map[uuid.UUID]*scheduler.Email)}
}

func (s *fakeEmailStore) Create(_ context.Context, email *scheduler.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	clone := *email
	now := time.Now()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	s.emails[email.ID] = &clone
	return nil
}

func (s *fakeEmailStore) GetByID(_ context.Context, id uuid.UUID) (*scheduler.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.emails[id]
	if !ok {
		return nil, scheduler.ErrEmailNotFound
	}
	clone := *email
	return &clone, nil
}

func (s *fakeEmailStore) List(_ context.Context, filter scheduler.EmailFilter) ([]scheduler.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduler.Email
	for _, email := range s.emails {
		if filter.UserID != uuid.Nil && email.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, email.Status) {
			continue
		}
		out = append(out, *email)
	}
	return out, nil
}

func (s *fakeEmailStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[id]; !ok {
		return scheduler.ErrEmailNotFound
	}
	delete(s.emails, id)
	return nil
}

func (s *fakeEmailStore) UpdateStatus(_ context.Context, id uuid.UUID, status scheduler.Status) error {
	return s.mutate(id, func(e *scheduler.Email) {
		e.Status = status
	})
}

func (s *fakeEmailStore) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	return s.mutate(id, func(e *scheduler.Email) {
		e.Status = scheduler.StatusSent
		e.SentAt = &sentAt
		e.ErrorMessage = ""
	})
}

func (s *fakeEmailStore) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	return s.mutate(id, func(e *scheduler.Email) {
		e.Status = scheduler.StatusFailed
		e.ErrorMessage = errMsg
		e.RetryCount++
	})
}

func (s *fakeEmailStore) MarkRateLimited(_ context.Context, id uuid.UUID) error {
	return s.mutate(id, func(e *scheduler.Email) {
		e.Status = scheduler.StatusRateLimited
	})
}

func (s *fakeEmailStore) Reschedule(_ context.Context, id uuid.UUID, jobID string, scheduledAt time.Time) error {
	return s.mutate(id, func(e *scheduler.Email) {
		e.Status = scheduler.StatusScheduled
		e.JobID = jobID
		e.ScheduledAt = scheduledAt
	})
}

func (s *fakeEmailStore) SetJobID(_ context.Context, id uuid.UUID, jobID string) error {
	return s.mutate(id, func(e *scheduler.Email) {
		e.JobID = jobID
	})
}

func (s *fakeEmailStore) ListPending(_ context.Context) ([]scheduler.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduler.Email
	for _, email := range s.emails {
		if email.Status == scheduler.StatusScheduled || email.Status == scheduler.StatusRateLimited {
			out = append(out, *email)
		}
	}
	return out, nil
}

func (s *fakeEmailStore) FailAllProcessing(_ context.Context, errMsg string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, email := range s.emails {
		if email.Status == scheduler.StatusProcessing {
			email.Status = scheduler.StatusFailed
			email.ErrorMessage = errMsg
			n++
		}
	}
	return n, nil
}

func (s *fakeEmailStore) mutate(id uuid.UUID, fn func(*scheduler.Email)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.emails[id]
	if !ok {
		return scheduler.ErrEmailNotFound
	}
	fn(email)
	email.UpdatedAt = time.Now()
	return nil
}

func containsStatus(statuses []scheduler.Status, s scheduler.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// fakeSenderStore is an in-memory SenderStore.
type fakeSenderStore struct {
	mu      sync.Mutex
	senders map[uuid.UUID]*scheduler.Sender
}

func newFakeSenderStore(senders ...*scheduler.Sender) *fakeSenderStore {
	s := &fakeSenderStore{senders: make(map[uuid.UUID]*scheduler.Sender)}
	for _, sender := range senders {
		clone := *sender
		s.senders[sender.ID] = &clone
	}
	return s
}

func (s *fakeSenderStore) Create(_ context.Context, sender *scheduler.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sender
	s.senders[sender.ID] = &clone
	return nil
}

func (s *fakeSenderStore) GetByID(_ context.Context, id uuid.UUID) (*scheduler.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.senders[id]
	if !ok {
		return nil, scheduler.ErrSenderNotFound
	}
	clone := *sender
	return &clone, nil
}

func (s *fakeSenderStore) List(_ context.Context) ([]scheduler.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scheduler.Sender
	for _, sender := range s.senders {
		out = append(out, *sender)
	}
	return out, nil
}

func (s *fakeSenderStore) Update(_ context.Context, sender *scheduler.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.senders[sender.ID]; !ok {
		return scheduler.ErrSenderNotFound
	}
	clone := *sender
	s.senders[sender.ID] = &clone
	return nil
}

func (s *fakeSenderStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.senders[id]; !ok {
		return scheduler.ErrSenderNotFound
	}
	delete(s.senders, id)
	return nil
}

// fakeMailer records sends and can be programmed to fail.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Params
	sendErr error
}

func (m *fakeMailer) Send(_ context.Context, params mailer.Params) (mailer.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return mailer.Result{}, m.sendErr
	}
	m.sent = append(m.sent, params)
	return mailer.Result{MessageID: "msg-" + uuid.NewString()}, nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testSender() *scheduler.Sender {
	return &scheduler.Sender{
		ID:          uuid.New(),
		Email:       "outbox@example.com",
		Name:        "Outbox",
		SMTPUser:    "outbox@example.com",
		SMTPPass:    "secret",
		HourlyLimit: 100,
		IsActive:    true,
	}
}
