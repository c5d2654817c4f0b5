package course

import "time"

type Course struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Categories     string    `json:"categories"`
	Price          float64   `json:"price"`
	EstimatedPrice *float64  `json:"estimatedPrice,omitempty"`
	Thumbnail      string    `json:"thumbnail"`
	Tags           string    `json:"tags"`
	Level          string    `json:"level"`
	DemoURL        string    `json:"demoUrl"`
	Benefits       []Title   `json:"benefits"`
	Prerequisites  []Title   `json:"prerequisites"`
	Reviews        []Review  `json:"reviews"`
	Content        []Content `json:"courseData"`
	Ratings        float64   `json:"ratings"`
	Purchased      int       `json:"purchased"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Title struct {
	Title string `json:"title" validate:"required"`
}

// Content is one lesson of a course. The video url, links, suggestion and
// questions are only present in the view served to owners.
type Content struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	VideoURL       string         `json:"videoUrl,omitempty"`
	VideoThumbnail string         `json:"videoThumbnail"`
	VideoSection   string         `json:"videoSection"`
	VideoLength    int            `json:"videoLength"`
	VideoPlayer    string         `json:"videoPlayer"`
	Links          []Link         `json:"links,omitempty"`
	Suggestion     string         `json:"suggestion,omitempty"`
	Questions      []Question     `json:"questions,omitempty"`
	Quiz           []QuizQuestion `json:"quizQuestions"`
	Materials      []Material     `json:"studyMaterials"`
}

type Link struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
}

type QuizOption struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuizQuestion struct {
	Question    string       `json:"question" validate:"required"`
	Options     []QuizOption `json:"options" validate:"min=2,dive"`
	Explanation string       `json:"explanation,omitempty"`
}

// Correct returns the index of the first correct option, or -1.
func (q QuizQuestion) Correct() int {
	for i, o := range q.Options {
		if o.IsCorrect {
			return i
		}
	}
	return -1
}

type Material struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type Question struct {
	ID        string    `json:"id" db:"question_id"`
	ContentID string    `json:"contentId" db:"content_id"`
	UserID    string    `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	Question  string    `json:"question" db:"question"`
	Replies   []Answer  `json:"questionReplies" db:"-"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Answer struct {
	ID         string    `json:"id" db:"answer_id"`
	QuestionID string    `json:"questionId" db:"question_id"`
	UserID     string    `json:"userId" db:"user_id"`
	UserName   string    `json:"userName" db:"user_name"`
	Answer     string    `json:"answer" db:"answer"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type Review struct {
	ID        string    `json:"id" db:"review_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	UserID    string    `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	Replies   []Reply   `json:"commentReplies" db:"-"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Reply struct {
	ID        string    `json:"id" db:"reply_id"`
	ReviewID  string    `json:"reviewId" db:"review_id"`
	UserID    string    `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type CourseNew struct {
	Name           string       `json:"name" validate:"required"`
	Description    string       `json:"description" validate:"required"`
	Categories     string       `json:"categories" validate:"required"`
	Price          float64      `json:"price" validate:"gte=0"`
	EstimatedPrice *float64     `json:"estimatedPrice" validate:"omitempty,gte=0"`
	Thumbnail      string       `json:"thumbnail" validate:"omitempty,url"`
	Tags           string       `json:"tags"`
	Level          string       `json:"level" validate:"required"`
	DemoURL        string       `json:"demoUrl" validate:"omitempty,url"`
	Benefits       []Title      `json:"benefits" validate:"dive"`
	Prerequisites  []Title      `json:"prerequisites" validate:"dive"`
	Content        []ContentNew `json:"courseData" validate:"dive"`
}

type ContentNew struct {
	Title          string         `json:"title" validate:"required"`
	Description    string         `json:"description"`
	VideoURL       string         `json:"videoUrl" validate:"omitempty,url"`
	VideoThumbnail string         `json:"videoThumbnail"`
	VideoSection   string         `json:"videoSection"`
	VideoLength    int            `json:"videoLength" validate:"gte=0"`
	VideoPlayer    string         `json:"videoPlayer"`
	Links          []Link         `json:"links" validate:"dive"`
	Suggestion     string         `json:"suggestion"`
	Quiz           []QuizQuestion `json:"quizQuestions" validate:"dive"`
	Materials      []Material     `json:"studyMaterials" validate:"dive"`
}

type QuestionNew struct {
	Question  string `json:"question" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
	ContentID string `json:"contentId" validate:"required"`
}

type AnswerNew struct {
	Answer     string `json:"answer" validate:"required"`
	CourseID   string `json:"courseId" validate:"required"`
	ContentID  string `json:"contentId" validate:"required"`
	QuestionID string `json:"questionId" validate:"required"`
}

type ReviewNew struct {
	Review string `json:"review" validate:"required"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

type ReplyNew struct {
	Comment  string `json:"comment" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
	ReviewID string `json:"reviewId" validate:"required"`
}

// Public returns a copy of the course without the data reserved to owners.
func (c Course) Public() Course {
	out := c
	out.Content = make([]Content, len(c.Content))
	for i, ct := range c.Content {
		ct.VideoURL = ""
		ct.Links = nil
		ct.Suggestion = ""
		ct.Questions = nil
		out.Content[i] = ct
	}
	return out
}
