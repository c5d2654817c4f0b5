package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/e-learning/core/course"
	"github.com/irsalhamdi/e-learning/local"
)

var ErrNoQuiz = errors.New("lesson has no quiz")

// GradeQuiz counts the questions whose chosen option is correct. Unanswered
// questions count as wrong.
func GradeQuiz(quiz []course.QuizQuestion, answers map[int]int) (score, total int) {
	for i, q := range quiz {
		if chosen, ok := answers[i]; ok && chosen >= 0 && chosen < len(q.Options) && q.Options[chosen].IsCorrect {
			score++
		}
	}
	return score, len(quiz)
}

// SubmitQuiz grades the answers against the lesson's quiz and stores the
// attempt on the device.
func SubmitQuiz(ctx context.Context, api *Client, store *local.Store, userID, courseID, contentID string, answers map[int]int) (local.QuizResult, error) {
	contents, err := api.Content(ctx, courseID)
	if err != nil {
		return local.QuizResult{}, fmt.Errorf("fetching content of course[%s]: %w", courseID, err)
	}

	var lesson *course.Content
	for i := range contents {
		if contents[i].ID == contentID {
			lesson = &contents[i]
			break
		}
	}
	if lesson == nil || len(lesson.Quiz) == 0 {
		return local.QuizResult{}, ErrNoQuiz
	}

	score, total := GradeQuiz(lesson.Quiz, answers)

	return store.SaveQuizResult(ctx, local.QuizResultNew{
		UserID:    userID,
		CourseID:  courseID,
		ContentID: contentID,
		Score:     score,
		Total:     total,
		Answers:   answers,
	})
}
