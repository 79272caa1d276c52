package notification_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openlearn/learning-management/internal"
	notificationmodel "github.com/openlearn/learning-management/internal/core/datamodel/notification"
	"github.com/openlearn/learning-management/internal/core/events"
	"github.com/openlearn/learning-management/internal/notification"
)

type mockNotificationRepo struct {
	nextID int64
	rows   map[int64]*notificationmodel.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{nextID: 1, rows: map[int64]*notificationmodel.Notification{}}
}

func (m *mockNotificationRepo) Create(row *notificationmodel.Notification) error {
	row.ID = m.nextID
	m.nextID++
	m.rows[row.ID] = row
	return nil
}

func (m *mockNotificationRepo) GetByID(notificationID int64) (*notificationmodel.Notification, error) {
	return m.rows[notificationID], nil
}

func (m *mockNotificationRepo) ListByUser(userID int64, unreadOnly bool) ([]notificationmodel.Notification, error) {
	out := make([]notificationmodel.Notification, 0)
	for _, row := range m.rows {
		if row.UserID != userID {
			continue
		}
		if unreadOnly && row.IsRead {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(row *notificationmodel.Notification) error {
	m.rows[row.ID] = row
	return nil
}

var _ = Describe("Notification Service", func() {
	var (
		repo    *mockNotificationRepo
		bus     *events.EventBus
		service *notification.Service
	)

	BeforeEach(func() {
		repo = newMockNotificationRepo()
		bus = events.NewEventBus(slog.Default())
		service = notification.NewService(repo, slog.Default())
		service.Register(bus)
	})

	Describe("event fan-out", func() {
		It("stores a welcome mail on registration", func() {
			err := bus.PublishSync(context.Background(), events.NewUserRegisteredEvent(42, "jdoe", 1))
			Expect(err).NotTo(HaveOccurred())

			views, err := service.Notifications(42, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Subject).To(Equal("Welcome to the learning platform"))
			Expect(views[0].IsRead).To(BeFalse())
		})

		It("addresses the enrollment mail to the enrolled user, not the actor", func() {
			err := bus.PublishSync(context.Background(), events.NewCourseEnrolledEvent(42, 7, "Go Basics", 99))
			Expect(err).NotTo(HaveOccurred())

			views, err := service.Notifications(42, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Body).To(ContainSubstring(`"Go Basics"`))

			actorViews, err := service.Notifications(99, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(actorViews).To(BeEmpty())
		})

		It("stores one mail per event type", func() {
			ctx := context.Background()
			Expect(bus.PublishSync(ctx, events.NewCourseCompletedEvent(42, 7, "Go Basics"))).To(Succeed())
			Expect(bus.PublishSync(ctx, events.NewAssessmentAssignedEvent(42, 3, "Go Quiz", 1))).To(Succeed())
			Expect(bus.PublishSync(ctx, events.NewAssessmentCompletedEvent(42, 3, "Go Quiz"))).To(Succeed())

			views, err := service.Notifications(42, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(3))
		})
	})

	Describe("MarkRead", func() {
		It("stamps the read flag and filters the unread view", func() {
			ctx := context.Background()
			Expect(bus.PublishSync(ctx, events.NewUserRegisteredEvent(42, "jdoe", 1))).To(Succeed())
			Expect(bus.PublishSync(ctx, events.NewCourseEnrolledEvent(42, 7, "Go Basics", 1))).To(Succeed())

			views, err := service.Notifications(42, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(2))

			read, err := service.MarkRead(42, views[0].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.IsRead).To(BeTrue())
			Expect(read.ReadAt).NotTo(BeNil())

			unread, err := service.Notifications(42, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(unread).To(HaveLen(1))
		})

		It("does not leak another user's notification", func() {
			ctx := context.Background()
			Expect(bus.PublishSync(ctx, events.NewUserRegisteredEvent(42, "jdoe", 1))).To(Succeed())

			views, err := service.Notifications(42, false)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.MarkRead(99, views[0].ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
		})

		It("is idempotent for an already read notification", func() {
			ctx := context.Background()
			Expect(bus.PublishSync(ctx, events.NewUserRegisteredEvent(42, "jdoe", 1))).To(Succeed())

			views, err := service.Notifications(42, false)
			Expect(err).NotTo(HaveOccurred())

			first, err := service.MarkRead(42, views[0].ID)
			Expect(err).NotTo(HaveOccurred())
			second, err := service.MarkRead(42, views[0].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ReadAt).To(Equal(first.ReadAt))
		})
	})
})
