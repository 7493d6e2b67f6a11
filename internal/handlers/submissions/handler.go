package submissions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/services/intake"
	"gitlab.com/grader-api/internal/handlers"
	"gitlab.com/grader-api/internal/static/errs"
)

const (
	defaultPage  = 1
	defaultLimit = 50
)

// Handler serves the submission API
type Handler struct {
	intakeService *intake.Service
	logger        primary.Logger
}

// NewHandler creates a new submissions handler
func NewHandler(intakeService *intake.Service, logger primary.Logger) *Handler {
	return &Handler{
		intakeService: intakeService,
		logger:        logger,
	}
}

// RegisterRoutes registers the API routes for the submission handler
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/submissions", h.Submit).Methods("POST")
	router.HandleFunc("/api/submissions", h.List).Methods("GET")
	router.HandleFunc("/api/submissions/user", h.ByUser).Methods("POST")
	router.HandleFunc("/api/submissions/{id:[0-9]+}/status", h.Status).Methods("GET")
	router.HandleFunc("/api/submissions/{id:[0-9]+}", h.Delete).Methods("DELETE")
	router.HandleFunc("/api/assignments/next", h.NextAssignment).Methods("POST")
	router.HandleFunc("/api/points", h.Points).Methods("POST")
	router.HandleFunc("/health", h.Health).Methods("GET")
}

// Submit accepts a new submission for grading
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.User == "" || req.Code == "" || req.AssignmentID <= 0 {
		handlers.ResponseError(w, "user, id and code are required", http.StatusBadRequest)
		return
	}

	result, err := h.intakeService.Submit(r.Context(), req.User, req.AssignmentID, req.Code, req.TestCode)
	if err != nil {
		if errors.Is(err, errs.PendingSubmissionExists) {
			handlers.ResponseError(w, "You already have a submission in grading.", http.StatusForbidden)
			return
		}
		h.logger.Error("Failed to accept submission", "userId", req.User, "error", err)
		handlers.ResponseError(w, "Failed to accept submission", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, result.SubmissionID)
}

// List returns one page of all submissions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", defaultPage)
	limit := queryInt(r, "limit", defaultLimit)
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	submissions, err := h.intakeService.Submissions(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.logger.Error("Failed to list submissions", "error", err)
		handlers.ResponseError(w, "Failed to list submissions", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, submissions)
}

// ByUser returns all submissions of one user
func (h *Handler) ByUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	submissions, err := h.intakeService.SubmissionsByUser(r.Context(), req.User)
	if err != nil {
		h.logger.Error("Failed to get submissions", "userId", req.User, "error", err)
		handlers.ResponseError(w, "Failed to get submissions", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, submissions)
}

// Status returns the grading status of one submission
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handlers.ResponseError(w, "Invalid submission id", http.StatusBadRequest)
		return
	}

	submission, err := h.intakeService.SubmissionStatus(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get submission status", "submissionId", id, "error", err)
		handlers.ResponseError(w, "Failed to get submission status", http.StatusInternalServerError)
		return
	}
	if submission == nil {
		handlers.ResponseError(w, "Submission not found", http.StatusNotFound)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, submission)
}

// Delete removes the caller's most recent submission
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handlers.ResponseError(w, "Invalid submission id", http.StatusBadRequest)
		return
	}

	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	err = h.intakeService.Delete(r.Context(), id, req.User)
	switch {
	case err == nil:
		handlers.ResponseWithJson(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, errs.SubmissionNotFound):
		handlers.ResponseError(w, "Submission not found", http.StatusNotFound)
	case errors.Is(err, errs.NotSubmissionOwner):
		handlers.ResponseError(w, "You are not authorized to delete this submission.", http.StatusForbidden)
	case errors.Is(err, errs.NotMostRecent):
		handlers.ResponseError(w, "You can only delete your most recent submission.", http.StatusForbidden)
	default:
		h.logger.Error("Failed to delete submission", "submissionId", id, "error", err)
		handlers.ResponseError(w, "Failed to delete submission", http.StatusInternalServerError)
	}
}

// NextAssignment returns the next assignment for the user
func (h *Handler) NextAssignment(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	assignment, err := h.intakeService.NextAssignment(r.Context(), req.User)
	if err != nil {
		h.logger.Error("Failed to get next assignment", "userId", req.User, "error", err)
		handlers.ResponseError(w, "Failed to get next assignment", http.StatusInternalServerError)
		return
	}

	// A nil assignment means every assignment is done; the UI expects null.
	handlers.ResponseWithJson(w, http.StatusOK, assignment)
}

// Points returns the user's solved-assignment count
func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	points, err := h.intakeService.Points(r.Context(), req.User)
	if err != nil {
		h.logger.Error("Failed to get points", "userId", req.User, "error", err)
		handlers.ResponseError(w, "Failed to get points", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string]int64{"points": points})
}

// Health is the liveness probe
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return value
}
