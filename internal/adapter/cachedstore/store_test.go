package cachedstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"gitlab.com/grader-api/internal/adapter/redis/resultcache"
	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Warn(msg string, args ...interface{})  {}

// countingStore tracks how often each read hits the underlying store
type countingStore struct {
	byUserCalls int
	pointsCalls int
	submissions []domain.Submission
	points      int64
}

func (s *countingStore) GetPendingOlderThan(ctx context.Context, age time.Duration) ([]domain.Submission, error) {
	return nil, nil
}

func (s *countingStore) GetTestCode(ctx context.Context, assignmentID int64) (string, error) {
	return "", nil
}

func (s *countingStore) UpdateStatus(ctx context.Context, id int64, status domain.SubmissionStatus, feedback string, correct bool) (time.Time, error) {
	return time.Now(), nil
}

func (s *countingStore) SettlePending(ctx context.Context, id int64, feedback string, correct bool) (time.Time, error) {
	return time.Now(), nil
}

func (s *countingStore) Add(ctx context.Context, submission *domain.Submission) (int64, error) {
	return 1, nil
}

func (s *countingStore) GetByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	s.byUserCalls++
	return s.submissions, nil
}

func (s *countingStore) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	return nil, nil
}

func (s *countingStore) GetMostRecentByUser(ctx context.Context, userID string) (*domain.Submission, error) {
	return nil, nil
}

func (s *countingStore) CountPendingByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (s *countingStore) CountCorrectByUser(ctx context.Context, userID string) (int64, error) {
	s.pointsCalls++
	return s.points, nil
}

func (s *countingStore) List(ctx context.Context, limit, offset int) ([]domain.Submission, error) {
	return nil, nil
}

func (s *countingStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	return true, nil
}

func (s *countingStore) GetAssignmentByOrder(ctx context.Context, order int64) (*domain.Assignment, error) {
	return nil, nil
}

func newTestStore(t *testing.T) (*Store, *countingStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.GraderConfig{StreamName: "submissions_stream"}
	cache := resultcache.NewResultCache(client, cfg, nopLogger{})
	inner := &countingStore{
		submissions: []domain.Submission{
			{ID: 1, UserID: "user-1", AssignmentID: 2, Status: domain.StatusProcessed, Correct: true},
		},
		points: 3,
	}
	return New(inner, cache, nopLogger{}), inner
}

func TestStore_ReadsAreMemoized(t *testing.T) {
	store, inner := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := store.GetByUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("GetByUser() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != 1 {
			t.Fatalf("GetByUser() = %+v, want the seeded submission", got)
		}
	}

	if inner.byUserCalls != 1 {
		t.Errorf("store hit %d times for three identical reads, want 1", inner.byUserCalls)
	}
}

func TestStore_MutationInvalidatesReads(t *testing.T) {
	store, inner := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CountCorrectByUser(ctx, "user-1"); err != nil {
		t.Fatalf("CountCorrectByUser() error = %v", err)
	}
	if _, err := store.CountCorrectByUser(ctx, "user-1"); err != nil {
		t.Fatalf("CountCorrectByUser() error = %v", err)
	}
	if inner.pointsCalls != 1 {
		t.Fatalf("store hit %d times before mutation, want 1", inner.pointsCalls)
	}

	if _, err := store.Add(ctx, domain.NewPendingSubmission("user-1", 2, "print(1)")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if _, err := store.CountCorrectByUser(ctx, "user-1"); err != nil {
		t.Fatalf("CountCorrectByUser() error = %v", err)
	}
	if inner.pointsCalls != 2 {
		t.Errorf("store hit %d times after mutation, want 2 (cache was not flushed)", inner.pointsCalls)
	}
}

func TestStore_DistinctUsersAreNotConflated(t *testing.T) {
	store, inner := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetByUser(ctx, "user-1"); err != nil {
		t.Fatalf("GetByUser(user-1) error = %v", err)
	}
	if _, err := store.GetByUser(ctx, "user-2"); err != nil {
		t.Fatalf("GetByUser(user-2) error = %v", err)
	}

	if inner.byUserCalls != 2 {
		t.Errorf("store hit %d times for two distinct users, want 2", inner.byUserCalls)
	}
}
