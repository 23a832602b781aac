package model

import (
	"context"
	"time"
)

// Locale identifies one of the two languages exam content is authored in.
type Locale string

const (
	LocaleKazakh  Locale = "kz"
	LocaleRussian Locale = "ru"
)

// ValidLocale reports whether l is a known content locale.
func ValidLocale(l Locale) bool {
	return l == LocaleKazakh || l == LocaleRussian
}

// LocalizedText holds display text keyed by locale.
type LocalizedText map[Locale]string

// Get returns the text for the given locale, falling back to any
// non-empty variant when the requested one is missing.
func (t LocalizedText) Get(l Locale) string {
	if s, ok := t[l]; ok && s != "" {
		return s
	}
	for _, s := range t {
		if s != "" {
			return s
		}
	}
	return ""
}

// QuestionType determines how many points a question is worth and how
// many correct options it must carry.
type QuestionType string

const (
	QuestionOnePoint  QuestionType = "onePoint"
	QuestionTwoPoints QuestionType = "twoPoints"
)

// Points returns the score value for the question type.
func (qt QuestionType) Points() int {
	if qt == QuestionTwoPoints {
		return 2
	}
	return 1
}

// CorrectCount returns how many correct options a question of this
// type must have.
func (qt QuestionType) CorrectCount() int {
	if qt == QuestionTwoPoints {
		return 2
	}
	return 1
}

// Option is one answer choice owned by a question.
type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
}

// Question is an exam question in one locale of one topic.
type Question struct {
	ID       int64        `json:"id"`
	TopicID  int64        `json:"topic_id"`
	Locale   Locale       `json:"locale"`
	Position int          `json:"position"`
	Text     string       `json:"text"`
	ImageRef string       `json:"image_ref,omitempty"`
	Type     QuestionType `json:"type"`
	Point    int          `json:"point"`
	Options  []Option     `json:"options,omitempty"`
}

// CorrectOptionIDs returns the ids of the question's correct options.
func (q Question) CorrectOptionIDs() []int64 {
	var ids []int64
	for _, o := range q.Options {
		if o.Correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Topic groups questions under a subject, one ordered list per locale.
type Topic struct {
	ID        int64              `json:"id"`
	SubjectID int64              `json:"subject_id"`
	Position  int                `json:"position"`
	Titles    LocalizedText      `json:"titles"`
	Questions map[Locale][]int64 `json:"questions,omitempty"`
}

// Subject is a top-level content unit with bilingual names.
type Subject struct {
	ID       int64         `json:"id"`
	Names    LocalizedText `json:"names"`
	TopicIDs []int64       `json:"topic_ids,omitempty"`
}

// ExamStatus is derived from the exam's time window.
type ExamStatus string

const (
	ExamActive   ExamStatus = "active"
	ExamInactive ExamStatus = "inactive"
)

// ExamType selects the question-picking strategy at exam creation.
type ExamType string

const (
	ExamTypeLast   ExamType = "last"
	ExamTypeRandom ExamType = "random"
)

// TopicSnapshot is the denormalized copy of a topic's question lists
// taken when an exam is created.
type TopicSnapshot struct {
	TopicID   int64              `json:"topic_id"`
	Questions map[Locale][]int64 `json:"questions"`
}

// SubjectSnapshot is the denormalized copy of a subject embedded in an exam.
type SubjectSnapshot struct {
	SubjectID int64           `json:"subject_id"`
	Names     LocalizedText   `json:"names"`
	Topics    []TopicSnapshot `json:"topics"`
}

// Exam is a scheduled test over a set of subject snapshots.
type Exam struct {
	ID         int64             `json:"id"`
	Status     ExamStatus        `json:"status"`
	Type       ExamType          `json:"exam_type"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Subjects   []SubjectSnapshot `json:"subjects"`
}

// Answer is one student response to one numbered question within a subject.
// QuestionNumber is 1-based and unique within the owning SubjectResult.
type Answer struct {
	QuestionNumber int     `json:"question_number"`
	QuestionID     int64   `json:"question_id"`
	OptionIDs      []int64 `json:"option_ids"`
	IsCorrect      *bool   `json:"is_correct,omitempty"`
	Calculated     bool    `json:"calculated"`
}

// SubjectResult is the portion of a Result scoped to one subject.
type SubjectResult struct {
	SubjectName    string   `json:"subject_name"`
	Answers        []Answer `json:"answers"`
	TotalPoints    int      `json:"total_points"`
	TotalCorrect   int      `json:"total_correct"`
	TotalIncorrect int      `json:"total_incorrect"`
	Percent        string   `json:"percent"`
}

// FindAnswer returns the answer with the given question number, or nil.
func (sr *SubjectResult) FindAnswer(questionNumber int) *Answer {
	for i := range sr.Answers {
		if sr.Answers[i].QuestionNumber == questionNumber {
			return &sr.Answers[i]
		}
	}
	return nil
}

// Result is a student's record of answers and scores for one exam.
// At most one Result exists per (exam, student) pair.
type Result struct {
	ID             int64           `json:"id"`
	ExamID         int64           `json:"exam_id"`
	StudentID      int64           `json:"student_id"`
	Subjects       []SubjectResult `json:"subjects"`
	OverallScore   int             `json:"overall_score"`
	TotalCorrect   int             `json:"total_correct"`
	TotalIncorrect int             `json:"total_incorrect"`
	OverallPercent string          `json:"overall_percent"`
	Version        int64           `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FindSubject returns the subject result with the given display name, or nil.
func (r *Result) FindSubject(name string) *SubjectResult {
	for i := range r.Subjects {
		if r.Subjects[i].SubjectName == name {
			return &r.Subjects[i]
		}
	}
	return nil
}

// Role is the user discriminator.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// StudentProfile carries the student-only fields of a user.
type StudentProfile struct {
	ClassID int64 `json:"class_id"`
}

// TeacherProfile carries the teacher-only fields of a user.
type TeacherProfile struct {
	SubjectID int64 `json:"subject_id"`
}

// User is a roster entry. Exactly one profile matching Role is set;
// admins carry none.
type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	FirstName    string          `json:"name"`
	LastName     string          `json:"surname"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"role"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	Student      *StudentProfile `json:"student,omitempty"`
	Teacher      *TeacherProfile `json:"teacher,omitempty"`
}

// Class is a roster group of students.
type Class struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AuthSession is a persisted refresh token.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores the authenticated user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}
