package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/database"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/jmoiron/sqlx"
)

type contentRef struct {
	CourseID  string `db:"course_id"`
	ContentID string `db:"content_id"`
	Title     string `db:"title"`
}

// lesson checks that contentID is a lesson of courseID and returns its title.
func lesson(ctx context.Context, db sqlx.ExtContext, courseID, contentID string) (contentRef, error) {
	if err := validate.CheckID(courseID); err != nil {
		return contentRef{}, ErrNotFound
	}
	if err := validate.CheckID(contentID); err != nil {
		return contentRef{}, ErrInvalidContent
	}

	var found struct {
		Exists bool `db:"found"`
	}
	const qc = `SELECT EXISTS (SELECT 1 FROM courses WHERE course_id = :course_id) AS found`
	if err := database.NamedQueryStruct(ctx, db, qc, idIn{courseID}, &found); err != nil {
		return contentRef{}, fmt.Errorf("checking course[%s]: %w", courseID, err)
	}
	if !found.Exists {
		return contentRef{}, ErrNotFound
	}

	in := contentRef{CourseID: courseID, ContentID: contentID}
	const q = `
	SELECT course_id, content_id, title
	FROM course_contents
	WHERE course_id = :course_id AND content_id = :content_id`

	var ref contentRef
	if err := database.NamedQueryStruct(ctx, db, q, in, &ref); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return contentRef{}, ErrInvalidContent
		}
		return contentRef{}, fmt.Errorf("selecting content[%s]: %w", contentID, err)
	}
	return ref, nil
}

func AddQuestion(ctx context.Context, db sqlx.ExtContext, clm claims.Claims, qn QuestionNew) (Question, error) {
	if _, err := lesson(ctx, db, qn.CourseID, qn.ContentID); err != nil {
		return Question{}, err
	}

	q := Question{
		ID:        validate.GenerateID(),
		ContentID: qn.ContentID,
		UserID:    clm.UserID,
		UserName:  clm.Name,
		Question:  qn.Question,
		Replies:   []Answer{},
		CreatedAt: time.Now().UTC(),
	}

	const stmt = `
	INSERT INTO questions
		(question_id, content_id, user_id, user_name, question, created_at)
	VALUES
		(:question_id, :content_id, CAST(NULLIF(:user_id, '') AS UUID), :user_name, :question, :created_at)`

	if _, err := database.NamedExecContext(ctx, db, stmt, q); err != nil {
		return Question{}, fmt.Errorf("inserting question on content[%s]: %w", qn.ContentID, err)
	}
	return q, nil
}

// Answered is an answer together with what is needed to notify the asker.
type Answered struct {
	Answer
	AskerID      string
	ContentTitle string
}

func AddAnswer(ctx context.Context, db sqlx.ExtContext, clm claims.Claims, an AnswerNew) (Answered, error) {
	ref, err := lesson(ctx, db, an.CourseID, an.ContentID)
	if err != nil {
		return Answered{}, err
	}
	if err := validate.CheckID(an.QuestionID); err != nil {
		return Answered{}, ErrInvalidQuestion
	}

	in := struct {
		QuestionID string `db:"question_id"`
		ContentID  string `db:"content_id"`
	}{an.QuestionID, an.ContentID}

	const qq = `
	SELECT COALESCE(CAST(user_id AS TEXT), '') AS user_id
	FROM questions
	WHERE question_id = :question_id AND content_id = :content_id`

	var asker struct {
		UserID string `db:"user_id"`
	}
	if err := database.NamedQueryStruct(ctx, db, qq, in, &asker); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Answered{}, ErrInvalidQuestion
		}
		return Answered{}, fmt.Errorf("selecting question[%s]: %w", an.QuestionID, err)
	}

	a := Answer{
		ID:         validate.GenerateID(),
		QuestionID: an.QuestionID,
		UserID:     clm.UserID,
		UserName:   clm.Name,
		Answer:     an.Answer,
		CreatedAt:  time.Now().UTC(),
	}

	const stmt = `
	INSERT INTO answers
		(answer_id, question_id, user_id, user_name, answer, created_at)
	VALUES
		(:answer_id, :question_id, CAST(NULLIF(:user_id, '') AS UUID), :user_name, :answer, :created_at)`

	if _, err := database.NamedExecContext(ctx, db, stmt, a); err != nil {
		return Answered{}, fmt.Errorf("inserting answer on question[%s]: %w", an.QuestionID, err)
	}
	return Answered{Answer: a, AskerID: asker.UserID, ContentTitle: ref.Title}, nil
}

// AddReview stores a review and recomputes the course rating as the average
// of all its reviews.
func AddReview(ctx context.Context, db *sqlx.DB, clm claims.Claims, courseID string, rn ReviewNew) (Review, error) {
	if err := validate.CheckID(courseID); err != nil {
		return Review{}, ErrNotFound
	}

	r := Review{
		ID:        validate.GenerateID(),
		CourseID:  courseID,
		UserID:    clm.UserID,
		UserName:  clm.Name,
		Rating:    rn.Rating,
		Comment:   rn.Review,
		Replies:   []Reply{},
		CreatedAt: time.Now().UTC(),
	}

	err := database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		const lock = `SELECT course_id FROM courses WHERE course_id = :course_id FOR UPDATE`

		var locked idIn
		if err := database.NamedQueryStruct(ctx, tx, lock, idIn{courseID}, &locked); err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("locking course: %w", err)
		}

		const ins = `
		INSERT INTO reviews
			(review_id, course_id, user_id, user_name, rating, comment, created_at)
		VALUES
			(:review_id, :course_id, CAST(NULLIF(:user_id, '') AS UUID), :user_name, :rating, :comment, :created_at)`

		if _, err := database.NamedExecContext(ctx, tx, ins, r); err != nil {
			return fmt.Errorf("inserting review: %w", err)
		}

		const avg = `
		UPDATE courses SET
			ratings = (SELECT AVG(rating) FROM reviews WHERE course_id = :course_id),
			updated_at = :updated_at
		WHERE course_id = :course_id`

		up := struct {
			CourseID  string    `db:"course_id"`
			UpdatedAt time.Time `db:"updated_at"`
		}{courseID, r.CreatedAt}
		if _, err := database.NamedExecContext(ctx, tx, avg, up); err != nil {
			return fmt.Errorf("updating ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return Review{}, fmt.Errorf("reviewing course[%s]: %w", courseID, err)
	}
	return r, nil
}

func AddReply(ctx context.Context, db sqlx.ExtContext, clm claims.Claims, rn ReplyNew) (Reply, error) {
	if err := validate.CheckID(rn.CourseID); err != nil {
		return Reply{}, ErrNotFound
	}
	if err := validate.CheckID(rn.ReviewID); err != nil {
		return Reply{}, ErrInvalidReview
	}

	in := struct {
		CourseID string `db:"course_id"`
		ReviewID string `db:"review_id"`
	}{rn.CourseID, rn.ReviewID}

	const q = `
	SELECT
		EXISTS (SELECT 1 FROM courses WHERE course_id = :course_id) AS course,
		EXISTS (SELECT 1 FROM reviews WHERE course_id = :course_id AND review_id = :review_id) AS review`

	var found struct {
		Course bool `db:"course"`
		Review bool `db:"review"`
	}
	if err := database.NamedQueryStruct(ctx, db, q, in, &found); err != nil {
		return Reply{}, fmt.Errorf("checking review[%s]: %w", rn.ReviewID, err)
	}
	switch {
	case !found.Course:
		return Reply{}, ErrNotFound
	case !found.Review:
		return Reply{}, ErrInvalidReview
	}

	rp := Reply{
		ID:        validate.GenerateID(),
		ReviewID:  rn.ReviewID,
		UserID:    clm.UserID,
		UserName:  clm.Name,
		Comment:   rn.Comment,
		CreatedAt: time.Now().UTC(),
	}

	const stmt = `
	INSERT INTO review_replies
		(reply_id, review_id, user_id, user_name, comment, created_at)
	VALUES
		(:reply_id, :review_id, CAST(NULLIF(:user_id, '') AS UUID), :user_name, :comment, :created_at)`

	if _, err := database.NamedExecContext(ctx, db, stmt, rp); err != nil {
		return Reply{}, fmt.Errorf("inserting reply on review[%s]: %w", rn.ReviewID, err)
	}
	return rp, nil
}
