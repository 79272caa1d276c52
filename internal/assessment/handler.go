package assessment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openlearn/learning-management/internal/auth"
	"github.com/openlearn/learning-management/internal/transport"
)

type ServiceAPI interface {
	CreateAssessment(actorID int64, dto CreateAssessmentDTO) (*View, error)
	GetAssessment(assessmentID int64) (*View, error)
	ListAssessments(limit, offset int) ([]View, error)
	CreateQuestion(actorID int64, dto CreateQuestionDTO) (*QuestionView, error)
	AddChoice(actorID, questionID int64, dto CreateChoiceDTO) (*ChoiceView, error)
	SetAnswer(actorID, questionID int64, dto SetAnswerDTO) error
	AssignQuestion(actorID, assessmentID int64, dto AssignQuestionDTO) error
	Questions(assessmentID int64) ([]QuestionView, error)
	AssignToCourse(actorID, assessmentID int64, dto AssignCourseDTO) error
	AssignUser(actorID, assessmentID int64, dto AssignUserDTO) error
	StartAttempt(userID, assessmentID int64) (*AttemptView, error)
	HoldAttempt(userID, assessmentID int64) (*AttemptView, error)
	CompleteAttempt(userID, assessmentID int64) (*AttemptView, error)
	OpenQuestion(userID, assessmentID, questionID int64) (*QuestionStateView, error)
	CompleteQuestion(userID, assessmentID, questionID int64) (*QuestionStateView, error)
	SkipQuestion(userID, assessmentID, questionID int64) (*QuestionStateView, error)
	Evaluate(userID, assessmentID int64) (*EvaluationView, error)
	Attempts(userID int64) ([]AttemptView, error)
}

type Handler struct {
	*transport.BaseHandler
	service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		service:     service,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	var dto CreateAssessmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/assessments/new")
		return
	}

	view, err := h.service.CreateAssessment(actor.ID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/assessments/new")
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	views, err := h.service.ListAssessments(limit, offset)
	if err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"assessments": views})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}

	view, err := h.service.GetAssessment(assessmentID)
	if err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	var dto CreateQuestionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/questions/new")
		return
	}

	view, err := h.service.CreateQuestion(actor.ID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/questions/new")
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) AddChoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	questionID, ok := h.pathID(w, r, "questionID")
	if !ok {
		return
	}

	var dto CreateChoiceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/questions")
		return
	}

	view, err := h.service.AddChoice(actor.ID, questionID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/questions")
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	questionID, ok := h.pathID(w, r, "questionID")
	if !ok {
		return
	}

	var dto SetAnswerDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/questions")
		return
	}

	if err := h.service.SetAnswer(actor.ID, questionID, dto); err != nil {
		h.WriteAppError(w, err, "/questions")
		return
	}
	h.WriteNotice(w, transport.SeveritySuccess, "Answer has been saved.", "/questions")
}

func (h *Handler) AssignQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}

	var dto AssignQuestionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/assessments")
		return
	}

	if err := h.service.AssignQuestion(actor.ID, assessmentID, dto); err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteNotice(w, transport.SeveritySuccess, "Question has been assigned.", "/assessments")
}

func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}

	views, err := h.service.Questions(assessmentID)
	if err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"questions": views})
}

func (h *Handler) AssignCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}

	var dto AssignCourseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/assessments")
		return
	}

	if err := h.service.AssignToCourse(actor.ID, assessmentID, dto); err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteNotice(w, transport.SeveritySuccess, "Assessment has been assigned to the course.", "/assessments")
}

func (h *Handler) AssignUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}

	var dto AssignUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/assessments")
		return
	}

	if err := h.service.AssignUser(actor.ID, assessmentID, dto); err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteNotice(w, transport.SeveritySuccess, "Assessment has been assigned to the user.", "/assessments")
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.attemptAction(w, r, h.service.StartAttempt)
}

func (h *Handler) Hold(w http.ResponseWriter, r *http.Request) {
	h.attemptAction(w, r, h.service.HoldAttempt)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.attemptAction(w, r, h.service.CompleteAttempt)
}

func (h *Handler) OpenQuestion(w http.ResponseWriter, r *http.Request) {
	h.questionAction(w, r, h.service.OpenQuestion)
}

func (h *Handler) CompleteQuestion(w http.ResponseWriter, r *http.Request) {
	h.questionAction(w, r, h.service.CompleteQuestion)
}

func (h *Handler) SkipQuestion(w http.ResponseWriter, r *http.Request) {
	h.questionAction(w, r, h.service.SkipQuestion)
}

// Evaluate is the evaluator's view over another user's attempt.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	view, err := h.service.Evaluate(userID, assessmentID)
	if err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

// MyAttempts lists the authenticated user's assigned assessments.
func (h *Handler) MyAttempts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	views, err := h.service.Attempts(actor.ID)
	if err != nil {
		h.WriteAppError(w, err, "/")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"attempts": views})
}

func (h *Handler) attemptAction(w http.ResponseWriter, r *http.Request,
	action func(userID, assessmentID int64) (*AttemptView, error)) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}

	view, err := action(actor.ID, assessmentID)
	if err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) questionAction(w http.ResponseWriter, r *http.Request,
	action func(userID, assessmentID, questionID int64) (*QuestionStateView, error)) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	assessmentID, ok := h.pathID(w, r, "assessmentID")
	if !ok {
		return
	}
	questionID, ok := h.pathID(w, r, "questionID")
	if !ok {
		return
	}

	view, err := action(actor.ID, assessmentID, questionID)
	if err != nil {
		h.WriteAppError(w, err, "/assessments")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return nil, false
	}
	return actor, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.WriteNotice(w, transport.SeverityWarning, "Page you attempt to visit does not exist", "/")
		return 0, false
	}
	return id, true
}
