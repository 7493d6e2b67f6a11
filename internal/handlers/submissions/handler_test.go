package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/core/services/intake"
	"gitlab.com/grader-api/internal/domain"
	"gitlab.com/grader-api/internal/static/errs"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Warn(msg string, args ...interface{})  {}

type fakeStore struct {
	pendingCount int64
	byID         map[int64]*domain.Submission
	list         []domain.Submission
	correctCount int64
	nextID       int64
}

func (s *fakeStore) GetPendingOlderThan(ctx context.Context, age time.Duration) ([]domain.Submission, error) {
	return nil, nil
}

func (s *fakeStore) GetTestCode(ctx context.Context, assignmentID int64) (string, error) {
	return "", nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id int64, status domain.SubmissionStatus, feedback string, correct bool) (time.Time, error) {
	return time.Now(), nil
}

func (s *fakeStore) SettlePending(ctx context.Context, id int64, feedback string, correct bool) (time.Time, error) {
	return time.Now(), nil
}

func (s *fakeStore) Add(ctx context.Context, submission *domain.Submission) (int64, error) {
	s.nextID++
	return s.nextID, nil
}

func (s *fakeStore) GetByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return nil, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	return s.byID[id], nil
}

func (s *fakeStore) GetMostRecentByUser(ctx context.Context, userID string) (*domain.Submission, error) {
	return nil, nil
}

func (s *fakeStore) CountPendingByUser(ctx context.Context, userID string) (int64, error) {
	return s.pendingCount, nil
}

func (s *fakeStore) CountCorrectByUser(ctx context.Context, userID string) (int64, error) {
	return s.correctCount, nil
}

func (s *fakeStore) List(ctx context.Context, limit, offset int) ([]domain.Submission, error) {
	return s.list, nil
}

func (s *fakeStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	return true, nil
}

func (s *fakeStore) GetAssignmentByOrder(ctx context.Context, order int64) (*domain.Assignment, error) {
	return nil, nil
}

type fakeQueue struct {
	enqueued []*domain.JobMessage
}

func (q *fakeQueue) Enqueue(ctx context.Context, job *domain.JobMessage) error {
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *fakeQueue) EnsureGroup(ctx context.Context) error         { return nil }
func (q *fakeQueue) Ack(ctx context.Context, entryID string) error { return nil }

func (q *fakeQueue) Read(ctx context.Context, consumer string) (*secondary.DeliveredJob, error) {
	return nil, errs.NoMessage
}

type fakePublisher struct{}

func (fakePublisher) Publish(ctx context.Context, event *domain.GradingEvent) error { return nil }

func newTestRouter(store *fakeStore, queue *fakeQueue) *mux.Router {
	svc := intake.NewService(store, queue, fakePublisher{}, nopLogger{})
	router := mux.NewRouter()
	NewHandler(svc, nopLogger{}).RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router *mux.Router, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Submit(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeQueue{}
	router := newTestRouter(store, queue)

	rec := postJSON(t, router, "/api/submissions", SubmitRequest{
		User:         "user-1",
		AssignmentID: 3,
		Code:         "print(1)",
		TestCode:     "assert True",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
	}
	var id int64
	if err := json.Unmarshal(rec.Body.Bytes(), &id); err != nil {
		t.Fatalf("response is not a submission id: %v", err)
	}
	if id != 1 {
		t.Errorf("submission id = %d, want 1", id)
	}
	if len(queue.enqueued) != 1 {
		t.Errorf("enqueued jobs = %d, want 1", len(queue.enqueued))
	}
}

func TestHandler_Submit_Validation(t *testing.T) {
	router := newTestRouter(&fakeStore{}, &fakeQueue{})

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{name: "missing user", req: SubmitRequest{AssignmentID: 3, Code: "x"}},
		{name: "missing code", req: SubmitRequest{User: "u", AssignmentID: 3}},
		{name: "missing assignment", req: SubmitRequest{User: "u", Code: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/submissions", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandler_Submit_RejectedWhilePending(t *testing.T) {
	store := &fakeStore{pendingCount: 1}
	router := newTestRouter(store, &fakeQueue{})

	rec := postJSON(t, router, "/api/submissions", SubmitRequest{
		User:         "user-1",
		AssignmentID: 3,
		Code:         "print(1)",
	})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandler_Status(t *testing.T) {
	store := &fakeStore{byID: map[int64]*domain.Submission{
		5: {ID: 5, UserID: "user-1", Status: domain.StatusProcessed, Correct: true},
	}}
	router := newTestRouter(store, &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/submissions/5/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got domain.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not a submission: %v", err)
	}
	if got.ID != 5 || got.Status != domain.StatusProcessed {
		t.Errorf("submission = %+v, want processed submission 5", got)
	}
}

func TestHandler_Status_NotFound(t *testing.T) {
	router := newTestRouter(&fakeStore{}, &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/submissions/99/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandler_Delete_NotOwner(t *testing.T) {
	store := &fakeStore{byID: map[int64]*domain.Submission{
		5: {ID: 5, UserID: "user-1"},
	}}
	router := newTestRouter(store, &fakeQueue{})

	payload, _ := json.Marshal(UserRequest{User: "user-2"})
	req := httptest.NewRequest(http.MethodDelete, "/api/submissions/5", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusForbidden, rec.Body)
	}
}

func TestHandler_Points(t *testing.T) {
	store := &fakeStore{correctCount: 4}
	router := newTestRouter(store, &fakeQueue{})

	rec := postJSON(t, router, "/api/points", UserRequest{User: "user-1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not a points object: %v", err)
	}
	if got["points"] != 4 {
		t.Errorf("points = %d, want 4", got["points"])
	}
}

func TestHandler_List_Pagination(t *testing.T) {
	store := &fakeStore{list: []domain.Submission{{ID: 1}, {ID: 2}}}
	router := newTestRouter(store, &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/submissions?page=2&limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got []domain.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not a submission list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("submissions = %d, want 2", len(got))
	}
}

func TestHandler_Health(t *testing.T) {
	router := newTestRouter(&fakeStore{}, &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
