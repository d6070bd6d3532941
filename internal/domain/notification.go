package domain

import "time"

// NotificationType represents the kind of notification.
type NotificationType string

const (
	NotificationQuizGraded     NotificationType = "QUIZ_GRADED"
	NotificationEnrolled       NotificationType = "ENROLLED"
	NotificationNewCourse      NotificationType = "NEW_COURSE"
	NotificationLessonComplete NotificationType = "LESSON_COMPLETE"
	NotificationCourseComplete NotificationType = "COURSE_COMPLETE"
	NotificationOther          NotificationType = "OTHER"
)

// Kind folds unrecognized tags into NotificationOther.
func (t NotificationType) Kind() NotificationType {
	switch t {
	case NotificationQuizGraded, NotificationEnrolled, NotificationNewCourse,
		NotificationLessonComplete, NotificationCourseComplete:
		return t
	default:
		return NotificationOther
	}
}

// Notification represents an in-app notification for the session user.
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"notification_type"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	Read      bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// PushEventNotification is the only push event kind the client acts on.
const PushEventNotification = "notification"

// PushEvent is the envelope of every message on the push connection.
type PushEvent struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
}

// UnreadCount is the unread counter response.
type UnreadCount struct {
	UnreadCount int `json:"unread_count"`
}
