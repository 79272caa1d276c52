package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/openlearn/learning-management/internal/assessment"
	"github.com/openlearn/learning-management/internal/auth"
	"github.com/openlearn/learning-management/internal/course"
	"github.com/openlearn/learning-management/internal/group"
	"github.com/openlearn/learning-management/internal/notification"
	"github.com/openlearn/learning-management/internal/transport/middleware"
	"github.com/openlearn/learning-management/internal/transport/swagger"
	"github.com/openlearn/learning-management/internal/user"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	Gate         *auth.Gate
	User         *user.Handler
	Group        *group.Handler
	Course       *course.Handler
	Assessment   *assessment.Handler
	Notification *notification.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
		})

		// Everything below needs a logged in, active principal.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.Middleware)
			pr.Use(h.Gate.RequireAuthenticated)

			pr.Post("/auth/logout", h.Auth.Logout)
			pr.Post("/auth/change-password", h.Auth.ChangePassword)
			pr.Get("/auth/me", h.Auth.Me)

			pr.Get("/dashboard", h.Course.Dashboard)

			pr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", h.Notification.List)
				nr.Post("/{notificationID}/read", h.Notification.MarkRead)
			})

			pr.Get("/me/courses", h.Course.MyEnrollments)
			pr.Get("/me/assessments", h.Assessment.MyAttempts)

			pr.Route("/courses", func(cr chi.Router) {
				cr.Get("/", h.Course.List)
				cr.Get("/{courseID}", h.Course.Get)
				cr.Get("/{courseID}/lessons", h.Course.Lessons)

				// learner progress
				cr.Get("/{courseID}/progress", h.Course.Progress)
				cr.Post("/{courseID}/complete", h.Course.CompleteCourse)
				cr.Post("/{courseID}/lessons/{lessonID}/open", h.Course.OpenLesson)
				cr.Post("/{courseID}/lessons/{lessonID}/close", h.Course.CloseLesson)
				cr.Post("/{courseID}/lessons/{lessonID}/complete", h.Course.CompleteLesson)
				cr.Post("/{courseID}/lessons/{lessonID}/skip", h.Course.SkipLesson)

				cr.Group(func(mr chi.Router) {
					mr.Use(h.Gate.RequirePermission(auth.PermCanCreateCourse))
					mr.Post("/", h.Course.Create)
					mr.Post("/{courseID}/lessons", h.Course.AssignLesson)
				})

				cr.Group(func(mr chi.Router) {
					mr.Use(h.Gate.RequirePermission(auth.PermCanAssignUserCourse))
					mr.Post("/{courseID}/enroll", h.Course.Enroll)
				})
			})

			pr.Group(func(mr chi.Router) {
				mr.Use(h.Gate.RequirePermission(auth.PermCanCreateCourse))
				mr.Post("/lessons", h.Course.CreateLesson)
			})

			pr.Route("/assessments", func(ar chi.Router) {
				ar.Get("/", h.Assessment.List)
				ar.Get("/{assessmentID}", h.Assessment.Get)
				ar.Get("/{assessmentID}/questions", h.Assessment.Questions)

				// taker lifecycle
				ar.Post("/{assessmentID}/start", h.Assessment.Start)
				ar.Post("/{assessmentID}/hold", h.Assessment.Hold)
				ar.Post("/{assessmentID}/complete", h.Assessment.Complete)
				ar.Post("/{assessmentID}/questions/{questionID}/open", h.Assessment.OpenQuestion)
				ar.Post("/{assessmentID}/questions/{questionID}/complete", h.Assessment.CompleteQuestion)
				ar.Post("/{assessmentID}/questions/{questionID}/skip", h.Assessment.SkipQuestion)

				ar.Group(func(mr chi.Router) {
					mr.Use(h.Gate.RequirePermission(auth.PermCanCreateAssessment))
					mr.Post("/", h.Assessment.Create)
					mr.Post("/{assessmentID}/questions", h.Assessment.AssignQuestion)
					mr.Post("/{assessmentID}/courses", h.Assessment.AssignCourse)
				})

				ar.Group(func(mr chi.Router) {
					mr.Use(h.Gate.RequirePermission(auth.PermCanAssignUserAssessment))
					mr.Post("/{assessmentID}/assign", h.Assessment.AssignUser)
				})

				ar.Group(func(mr chi.Router) {
					mr.Use(h.Gate.RequirePermission(auth.PermCanEvaluateUserAssessment))
					mr.Get("/{assessmentID}/users/{userID}/evaluation", h.Assessment.Evaluate)
				})
			})

			pr.Group(func(mr chi.Router) {
				mr.Use(h.Gate.RequirePermission(auth.PermCanCreateAssessment))
				mr.Post("/questions", h.Assessment.CreateQuestion)
				mr.Post("/questions/{questionID}/choices", h.Assessment.AddChoice)
				mr.Post("/questions/{questionID}/answer", h.Assessment.SetAnswer)
			})

			// Administration panel, staff only.
			pr.Group(func(sr chi.Router) {
				sr.Use(h.Gate.RequireStaff)

				sr.Route("/users", func(ur chi.Router) {
					ur.Post("/", h.User.Register)
					ur.Get("/", h.User.List)
					ur.Get("/{userID}", h.User.Get)
					ur.Patch("/{userID}", h.User.Update)
					ur.Get("/{userID}/permissions", h.User.Permissions)
				})

				sr.Route("/groups", func(gr chi.Router) {
					gr.Post("/", h.Group.Create)
					gr.Get("/", h.Group.List)
					gr.Get("/{groupID}", h.Group.Get)
					gr.Patch("/{groupID}", h.Group.Update)
					gr.Get("/{groupID}/members", h.Group.Members)
				})
			})

			// Grant management, superusers only.
			pr.Group(func(sr chi.Router) {
				sr.Use(h.Gate.RequireSuperuser)
				sr.Put("/users/{userID}/permissions", h.User.AssignPermissions)
				sr.Put("/groups/{groupID}/permissions", h.Group.AssignPermissions)
			})
		})
	})
}
