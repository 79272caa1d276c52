package course

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
	CreateCourse(actorID int64, dto CreateCourseDTO) (*View, error)
	GetCourse(courseID int64) (*View, error)
	GetCourseByName(name string) (*View, error)
	ListCourses(limit, offset int) ([]View, error)
	CreateLesson(actorID int64, dto CreateLessonDTO) (*LessonView, error)
	Lessons(courseID int64) ([]LessonView, error)
	AssignLesson(actorID, courseID int64, dto AssignLessonDTO) error
	Enroll(actorID, courseID int64, dto EnrollDTO) error
	Enrollments(userID int64) ([]EnrollmentView, error)
	OpenLesson(userID, courseID, lessonID int64) (*LessonProgressView, error)
	CloseLesson(userID, courseID, lessonID int64) (*LessonProgressView, error)
	CompleteLesson(userID, courseID, lessonID int64) (*LessonProgressView, error)
	SkipLesson(userID, courseID, lessonID int64) (*LessonProgressView, error)
	CompleteCourse(userID, courseID int64) (*EnrollmentView, error)
	LessonProgress(userID, courseID int64) ([]LessonProgressView, error)
	Dashboard(userID int64) (*DashboardView, error)
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

	var dto CreateCourseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/courses/new")
		return
	}

	view, err := h.service.CreateCourse(actor.ID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/courses/new")
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

// List returns the catalog; ?name= resolves a single course by unique name.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		view, err := h.service.GetCourseByName(name)
		if err != nil {
			h.WriteAppError(w, err, "/courses")
			return
		}
		h.WriteJSON(w, http.StatusOK, view)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	views, err := h.service.ListCourses(limit, offset)
	if err != nil {
		h.WriteAppError(w, err, "/courses")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"courses": views})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}

	view, err := h.service.GetCourse(courseID)
	if err != nil {
		h.WriteAppError(w, err, "/courses")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	var dto CreateLessonDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/lessons/new")
		return
	}

	view, err := h.service.CreateLesson(actor.ID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/lessons/new")
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) Lessons(w http.ResponseWriter, r *http.Request) {
	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}

	views, err := h.service.Lessons(courseID)
	if err != nil {
		h.WriteAppError(w, err, "/courses")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"lessons": views})
}

func (h *Handler) AssignLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}

	var dto AssignLessonDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/courses")
		return
	}

	if err := h.service.AssignLesson(actor.ID, courseID, dto); err != nil {
		h.WriteAppError(w, err, "/courses")
		return
	}
	h.WriteNotice(w, transport.SeveritySuccess, "Lesson has been assigned.", "/courses")
}

// Enroll assigns a user to the course.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}

	var dto EnrollDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/courses")
		return
	}

	if err := h.service.Enroll(actor.ID, courseID, dto); err != nil {
		h.WriteAppError(w, err, "/courses")
		return
	}
	h.WriteNotice(w, transport.SeveritySuccess, "User has been enrolled.", "/courses")
}

// MyEnrollments lists the authenticated user's enrollments.
func (h *Handler) MyEnrollments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	views, err := h.service.Enrollments(actor.ID)
	if err != nil {
		h.WriteAppError(w, err, "/")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"enrollments": views})
}

func (h *Handler) OpenLesson(w http.ResponseWriter, r *http.Request) {
	h.progressAction(w, r, h.service.OpenLesson)
}

func (h *Handler) CloseLesson(w http.ResponseWriter, r *http.Request) {
	h.progressAction(w, r, h.service.CloseLesson)
}

func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	h.progressAction(w, r, h.service.CompleteLesson)
}

func (h *Handler) SkipLesson(w http.ResponseWriter, r *http.Request) {
	h.progressAction(w, r, h.service.SkipLesson)
}

func (h *Handler) CompleteCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}

	view, err := h.service.CompleteCourse(actor.ID, courseID)
	if err != nil {
		h.WriteAppError(w, err, "/courses")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}

	views, err := h.service.LessonProgress(actor.ID, courseID)
	if err != nil {
		h.WriteAppError(w, err, "/courses")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"progress": views})
}

// Dashboard returns the landing page metrics for the authenticated user.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	view, err := h.service.Dashboard(actor.ID)
	if err != nil {
		h.WriteAppError(w, err, "/")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) progressAction(w http.ResponseWriter, r *http.Request,
	action func(userID, courseID, lessonID int64) (*LessonProgressView, error)) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	courseID, ok := h.pathID(w, r, "courseID")
	if !ok {
		return
	}
	lessonID, ok := h.pathID(w, r, "lessonID")
	if !ok {
		return
	}

	view, err := action(actor.ID, courseID, lessonID)
	if err != nil {
		h.WriteAppError(w, err, "/courses")
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
