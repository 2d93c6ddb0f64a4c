package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-service/internal/domain"
	"github.com/spec-kit/notification-service/internal/events"
	"github.com/spec-kit/notification-service/internal/observability"
	apperrors "github.com/spec-kit/notification-service/pkg/util"
)

type memoryRepo struct {
	mu      sync.Mutex
	records []domain.Notification
	failFor map[string]error
	nextID  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{failFor: map[string]error{}}
}

func (r *memoryRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[n.RecipientEmail]; err != nil {
		return err
	}
	r.nextID++
	n.ID = fmt.Sprintf("n-%d", r.nextID)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, *n)
	return nil
}

func (r *memoryRepo) ListByRecipient(_ context.Context, tenant, email string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, 0)
	for _, rec := range r.records {
		if rec.Tenant == tenant && rec.RecipientEmail == email {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListUnread(_ context.Context, tenant, email string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, 0)
	for _, rec := range r.records {
		if rec.Tenant == tenant && rec.RecipientEmail == email && !rec.Read {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) MarkRead(_ context.Context, tenant, email, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		rec := &r.records[i]
		if rec.ID == id && rec.Tenant == tenant && rec.RecipientEmail == email {
			rec.Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memoryRepo) MarkAllRead(_ context.Context, tenant, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for i := range r.records {
		rec := &r.records[i]
		if rec.Tenant == tenant && rec.RecipientEmail == email && !rec.Read {
			rec.Read = true
			updated++
		}
	}
	return updated, nil
}

type fakeDirectory struct {
	recipients []string
}

func (d *fakeDirectory) ManagersForTenant(context.Context, string) []string {
	return d.recipients
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []string
	err    error
}

func (p *fakePusher) Push(_ context.Context, recipientEmail string, _ *domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.pushes = append(p.pushes, recipientEmail)
	return nil
}

func newTestService(repo *memoryRepo, dir *fakeDirectory, pusher *fakePusher) *NotificationService {
	return NewNotificationService(repo, dir, pusher, zap.NewNop(), observability.NewMetrics())
}

func TestHandleSolutionEventPersistsAndPushes(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pusher := &fakePusher{}
	svc := newTestService(repo, &fakeDirectory{}, pusher)

	ev := events.NewSolutionEvent("acme", "999", "888", "a@x.com", "b@x.com", "Fix applied", "A", "DRAFT")
	require.NoError(t, svc.HandleTicketEvent(context.Background(), ev))

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	assert.Equal(t, "Solution Added by A", record.Subject)
	assert.Equal(t, "Fix applied", record.Message)
	assert.Equal(t, domain.SourceTypeSolution, record.SourceType)
	assert.Equal(t, "888", record.SourceID)
	assert.Equal(t, "acme", record.Tenant)
	assert.Equal(t, "a@x.com", record.SenderEmail)
	assert.Equal(t, "b@x.com", record.RecipientEmail)
	assert.False(t, record.Read)
	require.NotNil(t, record.ActionType)
	assert.Equal(t, "DRAFT", *record.ActionType)

	assert.Equal(t, []string{"b@x.com"}, pusher.pushes)
}

func TestHandleCommentEventTruncatesLongFields(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeDirectory{}, &fakePusher{})

	longAuthor := strings.Repeat("x", 250)
	longContent := strings.Repeat("y", 500)
	ev := events.NewCommentEvent("acme", "c-1", "t-1", "a@x.com", "b@x.com", longContent, longAuthor)
	require.NoError(t, svc.HandleTicketEvent(context.Background(), ev))

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	assert.LessOrEqual(t, len([]rune(record.Subject)), 200)
	assert.LessOrEqual(t, len([]rune(record.Message)), 200)
	assert.True(t, strings.HasPrefix(record.Subject, "Comment Added by "))
	assert.Nil(t, record.ActionType)
}

func TestHandleTicketEventDropsUnexpectedVariant(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeDirectory{}, &fakePusher{})

	ev := events.NewLogEvent("acme", "log-1", "sys@x.com", "b@x.com", "ERROR", "oops")
	require.NoError(t, svc.HandleTicketEvent(context.Background(), ev))
	assert.Empty(t, repo.records)
}

func TestHandleLogEventFansOutPerRecipient(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pusher := &fakePusher{}
	dir := &fakeDirectory{recipients: []string{"m1@acme.io", "m2@acme.io", "m3@acme.io"}}
	svc := newTestService(repo, dir, pusher)

	ev := events.NewLogEvent("acme", "log-42", "sys@x.com", "ops@x.com", "ERROR", "disk full")
	require.NoError(t, svc.HandleLogEvent(context.Background(), ev))

	require.Len(t, repo.records, 3)
	for _, record := range repo.records {
		assert.Equal(t, "log-42", record.SourceID)
		assert.Equal(t, domain.SourceTypeLog, record.SourceType)
		assert.Equal(t, "acme", record.Tenant)
		assert.Equal(t, "disk full", record.Message)
	}
	assert.ElementsMatch(t, dir.recipients, pusher.pushes)
}

func TestHandleLogEventFallbackSentinel(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	dir := &fakeDirectory{recipients: []string{"notifications-fallback@local"}}
	svc := newTestService(repo, dir, &fakePusher{})

	ev := events.NewLogEvent("acme", "log-1", "sys@x.com", "ops@x.com", "", "")
	require.NoError(t, svc.HandleLogEvent(context.Background(), ev))

	require.Len(t, repo.records, 1)
	assert.Equal(t, "notifications-fallback@local", repo.records[0].RecipientEmail)
	assert.Equal(t, domain.SourceTypeLog, repo.records[0].SourceType)
}

func TestHandleLogEventIsolatesPartialFailure(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.failFor["m2@acme.io"] = errors.New("db down for this row")
	dir := &fakeDirectory{recipients: []string{"m1@acme.io", "m2@acme.io", "m3@acme.io"}}
	svc := newTestService(repo, dir, &fakePusher{})

	ev := events.NewLogEvent("acme", "log-1", "sys@x.com", "ops@x.com", "WARN", "high latency")
	require.NoError(t, svc.HandleLogEvent(context.Background(), ev))

	require.Len(t, repo.records, 2)
	emails := []string{repo.records[0].RecipientEmail, repo.records[1].RecipientEmail}
	assert.ElementsMatch(t, []string{"m1@acme.io", "m3@acme.io"}, emails)
}

func TestHandleLogEventFailsWhenAllRecipientsFail(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.failFor["m1@acme.io"] = errors.New("db down")
	repo.failFor["m2@acme.io"] = errors.New("db down")
	dir := &fakeDirectory{recipients: []string{"m1@acme.io", "m2@acme.io"}}
	svc := newTestService(repo, dir, &fakePusher{})

	ev := events.NewLogEvent("acme", "log-1", "sys@x.com", "ops@x.com", "ERROR", "down")
	err := svc.HandleLogEvent(context.Background(), ev)
	require.Error(t, err)
	assert.Empty(t, repo.records)
}

func TestPushFailureDoesNotFailPersistedRecord(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pusher := &fakePusher{err: errors.New("no sessions")}
	svc := newTestService(repo, &fakeDirectory{}, pusher)

	ev := events.NewCommentEvent("acme", "c-1", "t-1", "a@x.com", "b@x.com", "hello", "A")
	require.NoError(t, svc.HandleTicketEvent(context.Background(), ev))
	require.Len(t, repo.records, 1)
}

func TestListUnreadIsTenantScoped(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeDirectory{}, &fakePusher{})
	ctx := context.Background()

	// same email exists under two tenants
	require.NoError(t, repo.Create(ctx, &domain.Notification{Tenant: "acme", RecipientEmail: "b@x.com", Subject: "a"}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{Tenant: "globex", RecipientEmail: "b@x.com", Subject: "g"}))

	unread, err := svc.ListUnread(ctx, "acme", "b@x.com")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "acme", unread[0].Tenant)
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeDirectory{}, &fakePusher{})
	ctx := context.Background()

	n := &domain.Notification{Tenant: "acme", RecipientEmail: "b@x.com", Subject: "s"}
	require.NoError(t, repo.Create(ctx, n))

	require.NoError(t, svc.MarkRead(ctx, "acme", "b@x.com", n.ID))
	// idempotent once successful
	require.NoError(t, svc.MarkRead(ctx, "acme", "b@x.com", n.ID))

	unread, err := svc.ListUnread(ctx, "acme", "b@x.com")
	require.NoError(t, err)
	assert.Empty(t, unread)

	err = svc.MarkRead(ctx, "acme", "b@x.com", "never-existed")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestMarkAllRead(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeDirectory{}, &fakePusher{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Notification{Tenant: "acme", RecipientEmail: "b@x.com"}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Notification{Tenant: "acme", RecipientEmail: "other@x.com"}))

	updated, err := svc.MarkAllRead(ctx, "acme", "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	unread, err := svc.ListUnread(ctx, "acme", "other@x.com")
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}
