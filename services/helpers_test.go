package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/mailer"
	"github.com/adi27online/meruglobalconnect/models"
)

type event struct {
	users []string
	name  string
	data  any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Notify(userIDs []string, name string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{users: userIDs, name: name, data: data})
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.name)
	}
	return out
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *database.MemoryStore
	notifier *recordingNotifier
	clock    *clock
	deps     Deps
}

func newFixture() *fixture {
	f := &fixture{
		store:    database.NewMemoryStore(),
		notifier: &recordingNotifier{},
		clock:    newClock(),
	}
	f.deps = Deps{
		Store:    f.store,
		Notifier: f.notifier,
		Now:      f.clock.Now,
	}
	return f
}

// seed stores a verified, paid user whose email is derived from id.
func (f *fixture) seed(t *testing.T, id, name string) *models.User {
	t.Helper()
	u := (&models.User{
		ID:         id,
		Email:      id + "@example.com",
		Profile:    models.Profile{Name: name},
		IsVerified: true,
		IsPaid:     true,
		CreatedAt:  f.clock.Now(),
		UpdatedAt:  f.clock.Now(),
	}).Normalize()
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateFriendRequest(ctx, a, b))
	require.NoError(t, f.store.AcceptFriendRequest(ctx, a, b))
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperrors.StatusOf(err), "unexpected error: %v", err)
}
