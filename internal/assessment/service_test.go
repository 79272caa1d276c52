package assessment_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/assessment"
	"github.com/openlearn/learning-management/internal/audit"
	assessmentmodel "github.com/openlearn/learning-management/internal/core/datamodel/assessment"
	"github.com/openlearn/learning-management/internal/core/events"
)

type attemptKey struct{ userID, assessmentID int64 }
type stateKey struct{ userID, assessmentID, questionID int64 }
type questionLinkKey struct{ assessmentID, questionID int64 }
type courseLinkKey struct{ courseID, assessmentID int64 }

type mockAssessmentRepo struct {
	nextAssessmentID int64
	nextQuestionID   int64
	nextChoiceID     int64
	assessments      map[int64]*assessmentmodel.Assessment
	questions        map[int64]*assessmentmodel.Question
	choices          map[int64][]assessmentmodel.Choice
	answers          map[int64]*assessmentmodel.Answer
	questionLinks    map[questionLinkKey]*assessmentmodel.AssessmentQuestion
	courses          map[int64]bool
	courseLinks      map[courseLinkKey]*assessmentmodel.CourseAssessment
	users            map[int64]bool
	attempts         map[attemptKey]*assessmentmodel.UserAssessment
	states           map[stateKey]*assessmentmodel.UserAssessmentQuestion
	entries          []audit.Entry

	duplicateOnAssign bool
}

func newMockAssessmentRepo() *mockAssessmentRepo {
	return &mockAssessmentRepo{
		nextAssessmentID: 1,
		nextQuestionID:   1,
		nextChoiceID:     1,
		assessments:      map[int64]*assessmentmodel.Assessment{},
		questions:        map[int64]*assessmentmodel.Question{},
		choices:          map[int64][]assessmentmodel.Choice{},
		answers:          map[int64]*assessmentmodel.Answer{},
		questionLinks:    map[questionLinkKey]*assessmentmodel.AssessmentQuestion{},
		courses:          map[int64]bool{},
		courseLinks:      map[courseLinkKey]*assessmentmodel.CourseAssessment{},
		users:            map[int64]bool{},
		attempts:         map[attemptKey]*assessmentmodel.UserAssessment{},
		states:           map[stateKey]*assessmentmodel.UserAssessmentQuestion{},
	}
}

func (m *mockAssessmentRepo) GetByID(assessmentID int64) (*assessmentmodel.Assessment, error) {
	return m.assessments[assessmentID], nil
}

func (m *mockAssessmentRepo) List(limit, offset int) ([]assessmentmodel.Assessment, error) {
	out := make([]assessmentmodel.Assessment, 0, len(m.assessments))
	for _, a := range m.assessments {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAssessmentRepo) Create(row *assessmentmodel.Assessment, entry audit.Entry) error {
	row.ID = m.nextAssessmentID
	m.nextAssessmentID++
	m.assessments[row.ID] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) GetQuestionByID(questionID int64) (*assessmentmodel.Question, error) {
	return m.questions[questionID], nil
}

func (m *mockAssessmentRepo) CreateQuestion(row *assessmentmodel.Question, entry audit.Entry) error {
	row.ID = m.nextQuestionID
	m.nextQuestionID++
	m.questions[row.ID] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) CreateChoice(row *assessmentmodel.Choice, entry audit.Entry) error {
	row.ID = m.nextChoiceID
	m.nextChoiceID++
	m.choices[row.QuestionID] = append(m.choices[row.QuestionID], *row)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) ChoicesOf(questionID int64) ([]assessmentmodel.Choice, error) {
	return m.choices[questionID], nil
}

func (m *mockAssessmentRepo) GetAnswer(questionID int64) (*assessmentmodel.Answer, error) {
	return m.answers[questionID], nil
}

func (m *mockAssessmentRepo) CreateAnswer(row *assessmentmodel.Answer, entry audit.Entry) error {
	if m.answers[row.QuestionID] != nil {
		return assessment.ErrDuplicate
	}
	m.answers[row.QuestionID] = row
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) GetAssessmentQuestion(assessmentID, questionID int64) (*assessmentmodel.AssessmentQuestion, error) {
	return m.questionLinks[questionLinkKey{assessmentID, questionID}], nil
}

func (m *mockAssessmentRepo) CreateAssessmentQuestion(link *assessmentmodel.AssessmentQuestion, entry audit.Entry) error {
	key := questionLinkKey{link.AssessmentID, link.QuestionID}
	if m.duplicateOnAssign || m.questionLinks[key] != nil {
		return assessment.ErrDuplicate
	}
	m.questionLinks[key] = link
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) QuestionsOf(assessmentID int64) ([]assessmentmodel.Question, error) {
	out := make([]assessmentmodel.Question, 0)
	for k := range m.questionLinks {
		if k.assessmentID == assessmentID {
			if q := m.questions[k.questionID]; q != nil {
				out = append(out, *q)
			}
		}
	}
	return out, nil
}

func (m *mockAssessmentRepo) CourseExists(courseID int64) (bool, error) {
	return m.courses[courseID], nil
}

func (m *mockAssessmentRepo) GetCourseAssessment(courseID, assessmentID int64) (*assessmentmodel.CourseAssessment, error) {
	return m.courseLinks[courseLinkKey{courseID, assessmentID}], nil
}

func (m *mockAssessmentRepo) CreateCourseAssessment(link *assessmentmodel.CourseAssessment, entry audit.Entry) error {
	key := courseLinkKey{link.CourseID, link.AssessmentID}
	if m.courseLinks[key] != nil {
		return assessment.ErrDuplicate
	}
	m.courseLinks[key] = link
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) UserExists(userID int64) (bool, error) {
	return m.users[userID], nil
}

func (m *mockAssessmentRepo) GetAttempt(userID, assessmentID int64) (*assessmentmodel.UserAssessment, error) {
	return m.attempts[attemptKey{userID, assessmentID}], nil
}

func (m *mockAssessmentRepo) CreateAttempt(attempt *assessmentmodel.UserAssessment, entry audit.Entry) error {
	key := attemptKey{attempt.UserID, attempt.AssessmentID}
	if m.duplicateOnAssign || m.attempts[key] != nil {
		return assessment.ErrDuplicate
	}
	m.attempts[key] = attempt
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) UpdateAttempt(attempt *assessmentmodel.UserAssessment, entry audit.Entry) error {
	m.attempts[attemptKey{attempt.UserID, attempt.AssessmentID}] = attempt
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) AttemptsOf(userID int64) ([]assessmentmodel.UserAssessment, error) {
	out := make([]assessmentmodel.UserAssessment, 0)
	for k, a := range m.attempts {
		if k.userID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssessmentRepo) GetQuestionState(userID, assessmentID, questionID int64) (*assessmentmodel.UserAssessmentQuestion, error) {
	return m.states[stateKey{userID, assessmentID, questionID}], nil
}

func (m *mockAssessmentRepo) SaveQuestionState(state *assessmentmodel.UserAssessmentQuestion, entry audit.Entry) error {
	m.states[stateKey{state.UserID, state.AssessmentID, state.QuestionID}] = state
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAssessmentRepo) QuestionStatesOf(userID, assessmentID int64) ([]assessmentmodel.UserAssessmentQuestion, error) {
	out := make([]assessmentmodel.UserAssessmentQuestion, 0)
	for k, s := range m.states {
		if k.userID == userID && k.assessmentID == assessmentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type capturingPublisher struct {
	published []events.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

var _ = Describe("Assessment Service", func() {
	var (
		repo      *mockAssessmentRepo
		publisher *capturingPublisher
		service   *assessment.Service
	)

	BeforeEach(func() {
		repo = newMockAssessmentRepo()
		publisher = &capturingPublisher{}
		service = assessment.NewService(repo, publisher, slog.Default())
	})

	seedAssessment := func() int64 {
		view, err := service.CreateAssessment(1, assessment.CreateAssessmentDTO{Name: "Go Fundamentals Quiz", DurationInMinutes: 30})
		Expect(err).NotTo(HaveOccurred())
		return view.ID
	}

	seedQuestion := func(qType string) int64 {
		view, err := service.CreateQuestion(1, assessment.CreateQuestionDTO{Question: "What is a goroutine?", Type: qType})
		Expect(err).NotTo(HaveOccurred())
		return view.ID
	}

	seedAttempt := func(userID, assessmentID int64) {
		repo.users[userID] = true
		Expect(service.AssignUser(1, assessmentID, assessment.AssignUserDTO{UserID: userID})).To(Succeed())
	}

	Describe("CreateAssessment", func() {
		It("defaults an empty summary to N/A", func() {
			view, err := service.CreateAssessment(1, assessment.CreateAssessmentDTO{Name: "Quiz"})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Summary).To(Equal("N/A"))
		})

		It("rejects a negative duration", func() {
			_, err := service.CreateAssessment(1, assessment.CreateAssessmentDTO{Name: "Quiz", DurationInMinutes: -5})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("CreateQuestion", func() {
		It("rejects an unknown question type", func() {
			_, err := service.CreateQuestion(1, assessment.CreateQuestionDTO{Question: "q", Type: "essay"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("SetAnswer", func() {
		It("stores one answer per question", func() {
			questionID := seedQuestion(assessment.QuestionTypeFreeText)
			Expect(service.SetAnswer(1, questionID, assessment.SetAnswerDTO{Answer: "a lightweight thread"})).To(Succeed())

			err := service.SetAnswer(1, questionID, assessment.SetAnswerDTO{Answer: "something else"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateAnswer))
		})

		It("refuses an unknown question", func() {
			err := service.SetAnswer(1, 404, assessment.SetAnswerDTO{Answer: "a"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("AssignQuestion", func() {
		It("links a question and stamps the assignment", func() {
			assessmentID := seedAssessment()
			questionID := seedQuestion(assessment.QuestionTypeMultipleChoice)

			Expect(service.AssignQuestion(7, assessmentID, assessment.AssignQuestionDTO{QuestionID: questionID})).To(Succeed())

			link := repo.questionLinks[questionLinkKey{assessmentID, questionID}]
			Expect(link).NotTo(BeNil())
			Expect(link.AssignedBy).To(Equal(int64(7)))
			Expect(link.AssignedAt).To(BeTemporally("~", time.Now().UTC(), time.Second))
		})

		It("conflicts when the question is already assigned", func() {
			assessmentID := seedAssessment()
			questionID := seedQuestion(assessment.QuestionTypeMultipleChoice)
			Expect(service.AssignQuestion(1, assessmentID, assessment.AssignQuestionDTO{QuestionID: questionID})).To(Succeed())

			err := service.AssignQuestion(1, assessmentID, assessment.AssignQuestionDTO{QuestionID: questionID})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
			Expect(appErr.Message).To(Equal("This question is already assigned to this assessment."))
		})

		It("refuses an unknown question", func() {
			assessmentID := seedAssessment()
			err := service.AssignQuestion(1, assessmentID, assessment.AssignQuestionDTO{QuestionID: 404})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("AssignUser", func() {
		It("creates the attempt and publishes the assignment", func() {
			assessmentID := seedAssessment()
			repo.users[42] = true

			Expect(service.AssignUser(9, assessmentID, assessment.AssignUserDTO{UserID: 42})).To(Succeed())

			attempt := repo.attempts[attemptKey{42, assessmentID}]
			Expect(attempt).NotTo(BeNil())
			Expect(attempt.AssignedBy).To(Equal(int64(9)))
			Expect(attempt.IsStarted).To(BeFalse())

			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.AssessmentAssignedEvent))
		})

		It("conflicts when already assigned and publishes nothing", func() {
			assessmentID := seedAssessment()
			repo.users[42] = true
			Expect(service.AssignUser(1, assessmentID, assessment.AssignUserDTO{UserID: 42})).To(Succeed())
			publisher.published = nil

			err := service.AssignUser(1, assessmentID, assessment.AssignUserDTO{UserID: 42})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("This assessment is already assigned to this user."))
			Expect(publisher.published).To(BeEmpty())
		})

		It("maps a lost insert race to the same conflict", func() {
			assessmentID := seedAssessment()
			repo.users[42] = true
			repo.duplicateOnAssign = true

			err := service.AssignUser(1, assessmentID, assessment.AssignUserDTO{UserID: 42})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("refuses an unknown user", func() {
			assessmentID := seedAssessment()
			err := service.AssignUser(1, assessmentID, assessment.AssignUserDTO{UserID: 404})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
			Expect(publisher.published).To(BeEmpty())
		})
	})

	Describe("attempt lifecycle", func() {
		It("start stamps the start once, resume keeps the original stamp", func() {
			assessmentID := seedAssessment()
			seedAttempt(42, assessmentID)

			first, err := service.StartAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.IsStarted).To(BeTrue())
			Expect(first.StartedAt).NotTo(BeNil())

			_, err = service.HoldAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())

			resumed, err := service.StartAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed.IsOnHold).To(BeFalse())
			Expect(resumed.StartedAt).To(Equal(first.StartedAt))
		})

		It("refuses to hold an attempt that was never started", func() {
			assessmentID := seedAssessment()
			seedAttempt(42, assessmentID)

			_, err := service.HoldAttempt(42, assessmentID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("complete clears the hold, stamps completion and publishes", func() {
			assessmentID := seedAssessment()
			seedAttempt(42, assessmentID)
			_, err := service.StartAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.HoldAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			publisher.published = nil

			view, err := service.CompleteAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsCompleted).To(BeTrue())
			Expect(view.IsOnHold).To(BeFalse())
			Expect(view.CompletedAt).NotTo(BeNil())

			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.AssessmentCompletedEvent))
		})

		It("completing twice is idempotent and publishes once", func() {
			assessmentID := seedAssessment()
			seedAttempt(42, assessmentID)
			_, err := service.StartAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			publisher.published = nil

			_, err = service.CompleteAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CompleteAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.published).To(HaveLen(1))
		})

		It("refuses to restart a completed attempt", func() {
			assessmentID := seedAssessment()
			seedAttempt(42, assessmentID)
			_, err := service.StartAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CompleteAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.StartAttempt(42, assessmentID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("refuses the lifecycle for a user without an attempt", func() {
			assessmentID := seedAssessment()
			_, err := service.StartAttempt(42, assessmentID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("question state", func() {
		var assessmentID, questionID int64

		BeforeEach(func() {
			assessmentID = seedAssessment()
			questionID = seedQuestion(assessment.QuestionTypeFreeText)
			Expect(service.AssignQuestion(1, assessmentID, assessment.AssignQuestionDTO{QuestionID: questionID})).To(Succeed())
			seedAttempt(42, assessmentID)
			_, err := service.StartAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("open stamps the access and clears a previous close", func() {
			view, err := service.OpenQuestion(42, assessmentID, questionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.OpenedAt).NotTo(BeNil())
			Expect(view.ClosedAt).To(BeNil())
		})

		It("complete clears a prior skip", func() {
			_, err := service.SkipQuestion(42, assessmentID, questionID)
			Expect(err).NotTo(HaveOccurred())

			view, err := service.CompleteQuestion(42, assessmentID, questionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.IsCompleted).To(BeTrue())
			Expect(view.IsSkipped).To(BeFalse())
		})

		It("refuses to skip an answered question", func() {
			_, err := service.CompleteQuestion(42, assessmentID, questionID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.SkipQuestion(42, assessmentID, questionID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("An answered question cannot be skipped."))
		})

		It("refuses a question outside the assessment", func() {
			otherQuestion := seedQuestion(assessment.QuestionTypeFreeText)
			_, err := service.OpenQuestion(42, assessmentID, otherQuestion)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})

		It("refuses question actions while the attempt is on hold", func() {
			_, err := service.HoldAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.OpenQuestion(42, assessmentID, questionID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Evaluate", func() {
		It("buckets questions into completed, skipped and open", func() {
			assessmentID := seedAssessment()
			q1 := seedQuestion(assessment.QuestionTypeFreeText)
			q2 := seedQuestion(assessment.QuestionTypeFreeText)
			q3 := seedQuestion(assessment.QuestionTypeFreeText)
			for _, q := range []int64{q1, q2, q3} {
				Expect(service.AssignQuestion(1, assessmentID, assessment.AssignQuestionDTO{QuestionID: q})).To(Succeed())
			}
			seedAttempt(42, assessmentID)
			_, err := service.StartAttempt(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CompleteQuestion(42, assessmentID, q1)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.SkipQuestion(42, assessmentID, q2)
			Expect(err).NotTo(HaveOccurred())

			view, err := service.Evaluate(42, assessmentID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.TotalCount).To(Equal(3))
			Expect(view.CompletedList).To(HaveLen(1))
			Expect(view.SkippedList).To(HaveLen(1))
			Expect(view.OpenCount).To(Equal(1))
		})

		It("refuses a user without an attempt", func() {
			assessmentID := seedAssessment()
			_, err := service.Evaluate(42, assessmentID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})
	})

	Describe("AttemptCounts", func() {
		It("reports total, started and completed attempts", func() {
			a1 := seedAssessment()
			a2 := seedAssessment()
			a3 := seedAssessment()
			seedAttempt(42, a1)
			seedAttempt(42, a2)
			seedAttempt(42, a3)
			_, err := service.StartAttempt(42, a1)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.StartAttempt(42, a2)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.CompleteAttempt(42, a2)
			Expect(err).NotTo(HaveOccurred())

			total, started, completed, err := service.AttemptCounts(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(3))
			Expect(started).To(Equal(2))
			Expect(completed).To(Equal(1))
		})
	})
})
