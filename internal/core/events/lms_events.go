package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the domain services. The notification module
// subscribes to all of them.
const (
	UserRegisteredEvent      = "user.registered"
	CourseEnrolledEvent      = "course.enrolled"
	CourseCompletedEvent     = "course.completed"
	AssessmentAssignedEvent  = "assessment.assigned"
	AssessmentCompletedEvent = "assessment.completed"
)

func newBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func NewUserRegisteredEvent(userID int64, username string, registeredBy int64) BaseEvent {
	return newBaseEvent(UserRegisteredEvent, map[string]interface{}{
		"user_id":       userID,
		"username":      username,
		"registered_by": registeredBy,
	})
}

func NewCourseEnrolledEvent(userID, courseID int64, courseName string, assignedBy int64) BaseEvent {
	return newBaseEvent(CourseEnrolledEvent, map[string]interface{}{
		"user_id":     userID,
		"course_id":   courseID,
		"course_name": courseName,
		"assigned_by": assignedBy,
	})
}

func NewCourseCompletedEvent(userID, courseID int64, courseName string) BaseEvent {
	return newBaseEvent(CourseCompletedEvent, map[string]interface{}{
		"user_id":     userID,
		"course_id":   courseID,
		"course_name": courseName,
	})
}

func NewAssessmentAssignedEvent(userID, assessmentID int64, assessmentName string, assignedBy int64) BaseEvent {
	return newBaseEvent(AssessmentAssignedEvent, map[string]interface{}{
		"user_id":         userID,
		"assessment_id":   assessmentID,
		"assessment_name": assessmentName,
		"assigned_by":     assignedBy,
	})
}

func NewAssessmentCompletedEvent(userID, assessmentID int64, assessmentName string) BaseEvent {
	return newBaseEvent(AssessmentCompletedEvent, map[string]interface{}{
		"user_id":         userID,
		"assessment_id":   assessmentID,
		"assessment_name": assessmentName,
	})
}
