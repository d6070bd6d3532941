package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sumire/oceanschool/internal/domain"
)

func (c *Client) Quizzes(ctx context.Context, courseID int64) ([]domain.Quiz, error) {
	var list []domain.Quiz
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/quizzes/", courseID), nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateQuiz(ctx context.Context, courseID int64, totalMarks int, passMarks *int) (domain.Quiz, error) {
	body := map[string]any{"total_marks": totalMarks}
	if passMarks != nil {
		body["pass_marks"] = *passMarks
	}
	var quiz domain.Quiz
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/quizzes/", courseID), nil, body, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (c *Client) Questions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var list []domain.Question
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/quizzes/%d/questions/", quizID), nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateQuestion(ctx context.Context, quizID int64, in domain.Question) (domain.Question, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Question{}, err
	}
	var question domain.Question
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/quizzes/%d/questions/", quizID), nil, in, &question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

// SubmitAttempt submits answers keyed by question ID and returns the grade.
func (c *Client) SubmitAttempt(ctx context.Context, quizID int64, answers map[int64]string) (domain.AttemptResult, error) {
	if len(answers) == 0 {
		return domain.AttemptResult{}, &domain.ValidationError{Field: "answers", Message: "at least one answer is required"}
	}
	keyed := make(map[string]string, len(answers))
	for id, answer := range answers {
		keyed[strconv.FormatInt(id, 10)] = answer
	}

	var result domain.AttemptResult
	body := map[string]any{"answers": keyed}
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/quizzes/%d/attempt/", quizID), nil, body, &result); err != nil {
		return domain.AttemptResult{}, err
	}
	return result, nil
}

func (c *Client) QuizResults(ctx context.Context, quizID int64) ([]domain.QuizAttempt, error) {
	var list []domain.QuizAttempt
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/quizzes/%d/results/", quizID), nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
