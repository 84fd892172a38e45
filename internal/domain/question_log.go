package domain

import "time"

// QuestionLog records an answered question for analytics and for the
// embedding backfill worker. AnswerChars is stored instead of the answer
// text to keep student content out of the analytics table.
type QuestionLog struct {
	ID          string
	CourseID    int64
	Question    string
	AnswerChars int
	HasContext  bool
	Sources     []Source
	DurationMs  int64
	Embedding   []float32
	Retries     int
	CreatedAt   time.Time
}
