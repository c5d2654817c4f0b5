package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// QuizResult is one attempt at the quiz of a lesson. Answers maps the index
// of each question to the index of the chosen option.
type QuizResult struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"userId"`
	CourseID  string      `json:"courseId"`
	ContentID string      `json:"contentId"`
	Score     int         `json:"score"`
	Total     int         `json:"total"`
	Answers   map[int]int `json:"answers"`
	CreatedAt time.Time   `json:"createdAt"`
}

type QuizResultNew struct {
	UserID    string
	CourseID  string
	ContentID string
	Score     int
	Total     int
	Answers   map[int]int
}

type quizRow struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"`
	CourseID  string `db:"course_id"`
	ContentID string `db:"content_id"`
	Score     int    `db:"score"`
	Total     int    `db:"total"`
	Answers   string `db:"answers"`
	CreatedAt int64  `db:"created_at"`
}

func (r quizRow) result() (QuizResult, error) {
	res := QuizResult{
		ID:        r.ID,
		UserID:    r.UserID,
		CourseID:  r.CourseID,
		ContentID: r.ContentID,
		Score:     r.Score,
		Total:     r.Total,
		Answers:   map[int]int{},
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(r.Answers), &res.Answers); err != nil {
		return QuizResult{}, err
	}
	return res, nil
}

// SaveQuizResult appends an attempt. Previous attempts are kept.
func (s *Store) SaveQuizResult(ctx context.Context, qn QuizResultNew) (QuizResult, error) {
	if qn.UserID == "" || qn.ContentID == "" {
		return QuizResult{}, ErrMissingField
	}
	if qn.Answers == nil {
		qn.Answers = map[int]int{}
	}

	answers, err := json.Marshal(qn.Answers)
	if err != nil {
		return QuizResult{}, storageErr("encode quiz answers", err)
	}

	row := quizRow{
		UserID:    qn.UserID,
		CourseID:  qn.CourseID,
		ContentID: qn.ContentID,
		Score:     qn.Score,
		Total:     qn.Total,
		Answers:   string(answers),
		CreatedAt: time.Now().UnixNano(),
	}

	const q = `
	INSERT INTO quiz_results
		(user_id, course_id, content_id, score, total, answers, created_at)
	VALUES
		(:user_id, :course_id, :content_id, :score, :total, :answers, :created_at)`

	res, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return QuizResult{}, storageErr("save quiz result", err)
	}

	if row.ID, err = res.LastInsertId(); err != nil {
		return QuizResult{}, storageErr("save quiz result", err)
	}

	out, err := row.result()
	if err != nil {
		return QuizResult{}, storageErr("decode quiz result", err)
	}
	return out, nil
}

// QuizResult returns the latest attempt of the user at the lesson's quiz.
func (s *Store) QuizResult(ctx context.Context, userID, contentID string) (QuizResult, error) {
	const q = `
	SELECT id, user_id, course_id, content_id, score, total, answers, created_at
	FROM quiz_results
	WHERE user_id = ? AND content_id = ?
	ORDER BY created_at DESC, id DESC
	LIMIT 1`

	var row quizRow
	if err := s.db.GetContext(ctx, &row, q, userID, contentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QuizResult{}, ErrNoResult
		}
		return QuizResult{}, storageErr("read quiz result", err)
	}

	res, err := row.result()
	if err != nil {
		return QuizResult{}, storageErr("decode quiz result", err)
	}
	return res, nil
}

// QuizHistory returns every attempt of the user at the lesson's quiz, newest
// first.
func (s *Store) QuizHistory(ctx context.Context, userID, contentID string) ([]QuizResult, error) {
	const q = `
	SELECT id, user_id, course_id, content_id, score, total, answers, created_at
	FROM quiz_results
	WHERE user_id = ? AND content_id = ?
	ORDER BY created_at DESC, id DESC`

	var rows []quizRow
	if err := s.db.SelectContext(ctx, &rows, q, userID, contentID); err != nil {
		return nil, storageErr("read quiz history", err)
	}

	out := make([]QuizResult, 0, len(rows))
	for _, r := range rows {
		res, err := r.result()
		if err != nil {
			return nil, storageErr("decode quiz result", err)
		}
		out = append(out, res)
	}
	return out, nil
}
