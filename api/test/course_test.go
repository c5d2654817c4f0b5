package test

import (
	"context"
	"net/http"
	"testing"

	"github.com/irsalhamdi/e-learning/core/course"
)

func TestCourseContentGating(t *testing.T) {
	env := NewTestEnv(t, "course_test")

	adm := env.admin(t)
	c := env.createCourse(t, adm.AccessToken, "go", 20)
	learner := env.register(t)

	var show struct {
		Course course.Course `json:"course"`
	}
	env.call(t, http.MethodGet, "/get-course/"+c.ID, "", nil, http.StatusOK, &show)
	if len(show.Course.Content) != 1 {
		t.Fatalf("expected one lesson, got %d", len(show.Course.Content))
	}
	if lesson := show.Course.Content[0]; lesson.VideoURL != "" || lesson.Links != nil {
		t.Fatalf("public course leaks owner data: %+v", lesson)
	}

	key, err := course.CacheKey(context.Background(), env.Redis, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !env.Mini.Exists(key) {
		t.Fatal("course not cached after a read")
	}

	env.call(t, http.MethodGet, "/get-course/not-a-course", "", nil, http.StatusNotFound, nil)
	env.call(t, http.MethodGet, "/get-course-content/"+c.ID, "", nil, http.StatusUnauthorized, nil)
	env.call(t, http.MethodGet, "/get-course-content/"+c.ID, learner.AccessToken, nil, http.StatusForbidden, nil)

	env.call(t, http.MethodPost, "/create-mobile-order", learner.AccessToken, map[string]any{"courseId": c.ID}, http.StatusCreated, nil)

	var content struct {
		Content []course.Content `json:"content"`
	}
	env.call(t, http.MethodGet, "/get-course-content/"+c.ID, learner.AccessToken, nil, http.StatusOK, &content)
	if len(content.Content) != 1 || content.Content[0].VideoURL == "" {
		t.Fatalf("owner did not get the full content: %+v", content.Content)
	}

	// Admins read any content.
	env.call(t, http.MethodGet, "/get-course-content/"+c.ID, adm.AccessToken, nil, http.StatusOK, nil)

	if env.Mini.Exists(key) {
		t.Fatal("course cache not dropped after a purchase")
	}

	env.call(t, http.MethodGet, "/get-course/"+c.ID, "", nil, http.StatusOK, &show)
	if show.Course.Purchased != 1 {
		t.Fatalf("expected purchased to be 1 after a purchase, got %d", show.Course.Purchased)
	}
}

func TestCourseThreads(t *testing.T) {
	env := NewTestEnv(t, "course_threads_test")

	adm := env.admin(t)
	c := env.createCourse(t, adm.AccessToken, "go", 20)
	lessonID := c.Content[0].ID

	learner := env.register(t)
	tok := learner.AccessToken

	env.call(t, http.MethodPost, "/create-mobile-order", tok, map[string]any{"courseId": c.ID}, http.StatusCreated, nil)

	qn := course.QuestionNew{Question: "why?", CourseID: c.ID, ContentID: lessonID}

	var q struct {
		Question course.Question `json:"question"`
	}
	env.call(t, http.MethodPut, "/add-question", tok, qn, http.StatusOK, &q)

	bad := course.QuestionNew{Question: "why?", CourseID: c.ID, ContentID: "missing"}
	env.call(t, http.MethodPut, "/add-question", tok, bad, http.StatusBadRequest, nil)

	an := course.AnswerNew{Answer: "because", CourseID: c.ID, ContentID: lessonID, QuestionID: q.Question.ID}
	env.call(t, http.MethodPut, "/add-answer", adm.AccessToken, an, http.StatusOK, nil)

	var rv struct {
		Review course.Review `json:"review"`
	}
	env.call(t, http.MethodPut, "/add-review/"+c.ID, tok, course.ReviewNew{Review: "great", Rating: 5}, http.StatusOK, &rv)
	env.call(t, http.MethodPut, "/add-review/"+c.ID, tok, course.ReviewNew{Review: "meh", Rating: 6}, http.StatusBadRequest, nil)

	rn := course.ReplyNew{Comment: "thanks", CourseID: c.ID, ReviewID: rv.Review.ID}
	env.call(t, http.MethodPut, "/add-reply", tok, rn, http.StatusForbidden, nil)
	env.call(t, http.MethodPut, "/add-reply", adm.AccessToken, rn, http.StatusOK, nil)

	var show struct {
		Course course.Course `json:"course"`
	}
	env.call(t, http.MethodGet, "/get-course/"+c.ID, "", nil, http.StatusOK, &show)
	if show.Course.Ratings != 5 {
		t.Fatalf("expected a rating of 5, got %v", show.Course.Ratings)
	}
	if len(show.Course.Reviews) != 1 || len(show.Course.Reviews[0].Replies) != 1 {
		t.Fatalf("review thread not stored: %+v", show.Course.Reviews)
	}

	var content struct {
		Content []course.Content `json:"content"`
	}
	env.call(t, http.MethodGet, "/get-course-content/"+c.ID, tok, nil, http.StatusOK, &content)
	questions := content.Content[0].Questions
	if len(questions) != 1 || len(questions[0].Replies) != 1 {
		t.Fatalf("question thread not stored: %+v", questions)
	}

	var notes struct {
		Notifications []struct {
			Title string `json:"title"`
		} `json:"notifications"`
	}
	env.call(t, http.MethodGet, "/notifications", tok, nil, http.StatusOK, &notes)
	if len(notes.Notifications) == 0 || notes.Notifications[0].Title != "New Question Reply Received" {
		t.Fatalf("asker was not notified: %+v", notes.Notifications)
	}
}

func TestCreateCourseAdminOnly(t *testing.T) {
	env := NewTestEnv(t, "course_admin_test")

	learner := env.register(t)
	in := course.CourseNew{Name: "go", Description: "d", Categories: "c", Level: "beginner"}
	env.call(t, http.MethodPost, "/courses", learner.AccessToken, in, http.StatusForbidden, nil)

	var list struct {
		Courses []course.Course `json:"courses"`
	}
	env.call(t, http.MethodGet, "/get-courses", "", nil, http.StatusOK, &list)
	if len(list.Courses) != 0 {
		t.Fatalf("expected no courses, got %d", len(list.Courses))
	}
}
