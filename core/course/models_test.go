package course

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPublic(t *testing.T) {
	c := Course{
		ID: "c1",
		Content: []Content{{
			ID:         "l1",
			Title:      "Intro",
			VideoURL:   "https://video.example.com/1",
			Links:      []Link{{Title: "docs", URL: "https://example.com"}},
			Suggestion: "watch twice",
			Questions:  []Question{{ID: "q1"}},
			Quiz:       []QuizQuestion{{Question: "2+2?", Options: []QuizOption{{Text: "4", IsCorrect: true}, {Text: "5"}}}},
			Materials:  []Material{{Title: "notes", Content: "..."}},
		}},
	}

	pub := c.Public()

	b, err := json.Marshal(pub)
	if err != nil {
		t.Fatal(err)
	}
	body := string(b)
	for _, hidden := range []string{"videoUrl", "links", "suggestion", "questions"} {
		if strings.Contains(body, `"`+hidden+`"`) {
			t.Errorf("public view exposes %s: %s", hidden, body)
		}
	}
	for _, kept := range []string{"quizQuestions", "studyMaterials"} {
		if !strings.Contains(body, `"`+kept+`"`) {
			t.Errorf("public view lost %s: %s", kept, body)
		}
	}

	if c.Content[0].VideoURL == "" {
		t.Fatal("Public modified the original course")
	}
}

func TestQuizCorrect(t *testing.T) {
	q := QuizQuestion{Options: []QuizOption{{Text: "a"}, {Text: "b", IsCorrect: true}}}
	if got := q.Correct(); got != 1 {
		t.Fatalf("expected option 1, got %d", got)
	}

	if got := (QuizQuestion{}).Correct(); got != -1 {
		t.Fatalf("expected -1 without a correct option, got %d", got)
	}
}
