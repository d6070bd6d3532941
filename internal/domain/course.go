package domain

import "time"

// Course represents a course offered by an instructor.
type Course struct {
	ID             int64     `json:"id"`
	Instructor     int64     `json:"instructor,omitempty"`
	InstructorName string    `json:"instructor_name,omitempty"`
	Title          string    `json:"title" validate:"required,max=255"`
	Description    string    `json:"description"`
	IsPublished    bool      `json:"is_published"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EnrolledCourse is a row of the student's "my courses" listing.
type EnrolledCourse struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Instructor     string     `json:"instructor"`
	EnrolledAt     time.Time  `json:"enrolled_at"`
	IsCompleted    bool       `json:"is_completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// Enrollment is returned when a student enrolls in a course.
type Enrollment struct {
	ID          int64     `json:"id"`
	Course      int64     `json:"course"`
	CourseTitle string    `json:"course_title"`
	EnrolledAt  time.Time `json:"enrolled_at"`
	IsActive    bool      `json:"is_active"`
}

// Rating is a student's review of a course.
type Rating struct {
	ID          int64     `json:"id,omitempty"`
	Rating      int       `json:"rating" validate:"required,min=1,max=5"`
	Feedback    string    `json:"feedback,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// WishlistItem is a course saved for later.
type WishlistItem struct {
	ID                int64     `json:"id"`
	Course            int64     `json:"course"`
	CourseTitle       string    `json:"course_title"`
	CourseDescription string    `json:"course_description"`
	InstructorName    string    `json:"instructor_name"`
	AddedAt           time.Time `json:"added_at"`
}

// Lesson is an ordered unit of course content.
type Lesson struct {
	ID          int64     `json:"id"`
	Course      int64     `json:"course,omitempty"`
	Title       string    `json:"title" validate:"required,max=255"`
	Content     string    `json:"content" validate:"required"`
	LessonOrder int       `json:"lesson_order" validate:"gte=0"`
	CreatedAt   time.Time `json:"created_at"`
}

// Note is a student's private lecture note on a lesson.
type Note struct {
	ID          int64     `json:"id"`
	Lesson      int64     `json:"lesson"`
	LessonTitle string    `json:"lesson_title,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Quiz is the graded assessment attached to a course.
type Quiz struct {
	ID         int64      `json:"id"`
	Course     int64      `json:"course,omitempty"`
	TotalMarks int        `json:"total_marks"`
	PassMarks  *int       `json:"pass_marks,omitempty"`
	Questions  []Question `json:"questions,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Question is a multiple-choice quiz question.
type Question struct {
	ID            int64   `json:"id"`
	Quiz          int64   `json:"quiz,omitempty"`
	QuestionText  string  `json:"question_text" validate:"required"`
	OptionA       string  `json:"option_a" validate:"required"`
	OptionB       string  `json:"option_b" validate:"required"`
	OptionC       *string `json:"option_c,omitempty"`
	OptionD       *string `json:"option_d,omitempty"`
	CorrectOption string  `json:"correct_option,omitempty" validate:"omitempty,oneof=A B C D a b c d"`
}

// QuizAttempt is a graded submission.
type QuizAttempt struct {
	ID          int64     `json:"id"`
	Quiz        int64     `json:"quiz"`
	QuizTitle   string    `json:"quiz_title"`
	Score       *float64  `json:"score"`
	IsPassed    bool      `json:"is_passed"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// AttemptResult is the grading response to a quiz submission.
type AttemptResult struct {
	Message        string      `json:"message"`
	Score          float64     `json:"score"`
	CorrectAnswers int         `json:"correct_answers"`
	TotalQuestions int         `json:"total_questions"`
	Attempt        QuizAttempt `json:"data"`
}

// Comment is a forum post on a course, optionally scoped to a lesson.
type Comment struct {
	ID           int64     `json:"id"`
	User         int64     `json:"user,omitempty"`
	Username     string    `json:"username,omitempty"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	Course       int64     `json:"course,omitempty"`
	Lesson       *int64    `json:"lesson,omitempty"`
	Parent       *int64    `json:"parent,omitempty"`
	Text         string    `json:"text" validate:"required"`
	CreatedAt    time.Time `json:"created_at"`
	Replies      []Comment `json:"replies,omitempty"`
}
