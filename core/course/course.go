// Package course stores the catalog, gates lesson content behind ownership
// and serves the Q&A and review threads.
package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning/cache"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/database"
	"github.com/irsalhamdi/e-learning/validate"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound        = errors.New("course not found")
	ErrForbidden       = errors.New("course not owned")
	ErrInvalidContent  = errors.New("content not found in course")
	ErrInvalidQuestion = errors.New("question not found in content")
	ErrInvalidReview   = errors.New("review not found in course")
)

func generationKey(id string) string { return "course:" + id + ":gen" }

func viewKey(id string, gen int64) string { return fmt.Sprintf("course:%s:%d", id, gen) }

// CacheKey returns the key holding the public view of the current generation
// of a course. Forget moves the generation on, so a reader that loaded the
// course before a change can only store its copy under a key nobody reads.
func CacheKey(ctx context.Context, rdb redis.Cmdable, id string) (string, error) {
	gen, err := cache.Generation(ctx, rdb, generationKey(id))
	if err != nil {
		return "", err
	}
	return viewKey(id, gen), nil
}

type courseRow struct {
	ID             string         `db:"course_id"`
	Name           string         `db:"name"`
	Description    string         `db:"description"`
	Categories     string         `db:"categories"`
	Price          float64        `db:"price"`
	EstimatedPrice *float64       `db:"estimated_price"`
	Thumbnail      string         `db:"thumbnail_url"`
	Tags           string         `db:"tags"`
	Level          string         `db:"level"`
	DemoURL        string         `db:"demo_url"`
	Benefits       types.JSONText `db:"benefits"`
	Prerequisites  types.JSONText `db:"prerequisites"`
	Ratings        float64        `db:"ratings"`
	Purchased      int            `db:"purchased"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type contentRow struct {
	ID             string         `db:"content_id"`
	CourseID       string         `db:"course_id"`
	Position       int            `db:"position"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	VideoURL       string         `db:"video_url"`
	VideoThumbnail string         `db:"video_thumbnail"`
	VideoSection   string         `db:"video_section"`
	VideoLength    int            `db:"video_length"`
	VideoPlayer    string         `db:"video_player"`
	Suggestion     string         `db:"suggestion"`
	Links          types.JSONText `db:"links"`
	Quiz           types.JSONText `db:"quiz"`
	Materials      types.JSONText `db:"materials"`
}

func (r courseRow) course() (Course, error) {
	c := Course{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Categories:     r.Categories,
		Price:          r.Price,
		EstimatedPrice: r.EstimatedPrice,
		Thumbnail:      r.Thumbnail,
		Tags:           r.Tags,
		Level:          r.Level,
		DemoURL:        r.DemoURL,
		Ratings:        r.Ratings,
		Purchased:      r.Purchased,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Reviews:        []Review{},
		Content:        []Content{},
	}
	if err := unmarshal(r.Benefits, &c.Benefits); err != nil {
		return Course{}, fmt.Errorf("decoding benefits of course[%s]: %w", r.ID, err)
	}
	if err := unmarshal(r.Prerequisites, &c.Prerequisites); err != nil {
		return Course{}, fmt.Errorf("decoding prerequisites of course[%s]: %w", r.ID, err)
	}
	return c, nil
}

func (r contentRow) content() (Content, error) {
	ct := Content{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		VideoURL:       r.VideoURL,
		VideoThumbnail: r.VideoThumbnail,
		VideoSection:   r.VideoSection,
		VideoLength:    r.VideoLength,
		VideoPlayer:    r.VideoPlayer,
		Suggestion:     r.Suggestion,
		Questions:      []Question{},
	}
	if err := unmarshal(r.Links, &ct.Links); err != nil {
		return Content{}, fmt.Errorf("decoding links of content[%s]: %w", r.ID, err)
	}
	if err := unmarshal(r.Quiz, &ct.Quiz); err != nil {
		return Content{}, fmt.Errorf("decoding quiz of content[%s]: %w", r.ID, err)
	}
	if err := unmarshal(r.Materials, &ct.Materials); err != nil {
		return Content{}, fmt.Errorf("decoding materials of content[%s]: %w", r.ID, err)
	}
	return ct, nil
}

// unmarshal decodes a JSON array column, leaving dest as an empty slice for
// NULL or empty values.
func unmarshal[T any](raw types.JSONText, dest *[]T) error {
	*dest = []T{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	if *dest == nil {
		*dest = []T{}
	}
	return nil
}

func marshal[T any](v []T) (types.JSONText, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b), nil
}

type idIn struct {
	ID string `db:"course_id"`
}

const courseColumns = `
	course_id, name, description, categories, price, estimated_price, thumbnail_url, tags,
	level, demo_url, benefits, prerequisites, ratings, purchased, created_at, updated_at`

const contentColumns = `
	content_id, course_id, position, title, description, video_url, video_thumbnail,
	video_section, video_length, video_player, suggestion, links, quiz, materials`

// Fetch loads a course with its lessons, Q&A threads and reviews.
func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	if err := validate.CheckID(id); err != nil {
		return Course{}, ErrNotFound
	}
	in := idIn{id}

	var row courseRow
	q := `SELECT` + courseColumns + ` FROM courses WHERE course_id = :course_id`
	if err := database.NamedQueryStruct(ctx, db, q, in, &row); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Course{}, ErrNotFound
		}
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}

	c, err := row.course()
	if err != nil {
		return Course{}, err
	}

	contents, err := contentsBy(ctx, db, `WHERE course_id = :course_id`, in)
	if err != nil {
		return Course{}, err
	}
	c.Content = contents[id]

	questions, err := questionsOf(ctx, db, id)
	if err != nil {
		return Course{}, err
	}
	for i := range c.Content {
		if qs, ok := questions[c.Content[i].ID]; ok {
			c.Content[i].Questions = qs
		}
	}

	reviews, err := reviewsBy(ctx, db, `WHERE course_id = :course_id`, in)
	if err != nil {
		return Course{}, err
	}
	if rs, ok := reviews[id]; ok {
		c.Reviews = rs
	}

	if c.Content == nil {
		c.Content = []Content{}
	}
	return c, nil
}

// List returns the public view of every course, newest first.
func List(ctx context.Context, db sqlx.ExtContext) ([]Course, error) {
	var rows []courseRow
	q := `SELECT` + courseColumns + ` FROM courses ORDER BY created_at DESC, course_id`
	if err := database.NamedQuerySlice(ctx, db, q, struct{}{}, &rows); err != nil {
		return nil, fmt.Errorf("selecting courses: %w", err)
	}

	contents, err := contentsBy(ctx, db, ``, struct{}{})
	if err != nil {
		return nil, err
	}

	reviews, err := reviewsBy(ctx, db, ``, struct{}{})
	if err != nil {
		return nil, err
	}

	courses := make([]Course, 0, len(rows))
	for _, r := range rows {
		c, err := r.course()
		if err != nil {
			return nil, err
		}
		if cts, ok := contents[c.ID]; ok {
			c.Content = cts
		}
		if rs, ok := reviews[c.ID]; ok {
			c.Reviews = rs
		}
		courses = append(courses, c.Public())
	}
	return courses, nil
}

func contentsBy(ctx context.Context, db sqlx.ExtContext, where string, in any) (map[string][]Content, error) {
	var rows []contentRow
	q := `SELECT` + contentColumns + ` FROM course_contents ` + where + ` ORDER BY course_id, position`
	if err := database.NamedQuerySlice(ctx, db, q, in, &rows); err != nil {
		return nil, fmt.Errorf("selecting contents: %w", err)
	}

	out := make(map[string][]Content)
	for _, r := range rows {
		ct, err := r.content()
		if err != nil {
			return nil, err
		}
		out[r.CourseID] = append(out[r.CourseID], ct)
	}
	return out, nil
}

// questionsOf returns the questions of a course keyed by content id, oldest
// first, with their answers attached.
func questionsOf(ctx context.Context, db sqlx.ExtContext, courseID string) (map[string][]Question, error) {
	in := idIn{courseID}

	const qq = `
	SELECT
		q.question_id, q.content_id, COALESCE(CAST(q.user_id AS TEXT), '') AS user_id,
		q.user_name, q.question, q.created_at
	FROM questions q
	JOIN course_contents cc ON cc.content_id = q.content_id
	WHERE cc.course_id = :course_id
	ORDER BY q.created_at, q.question_id`

	var questions []Question
	if err := database.NamedQuerySlice(ctx, db, qq, in, &questions); err != nil {
		return nil, fmt.Errorf("selecting questions of course[%s]: %w", courseID, err)
	}

	const qa = `
	SELECT
		a.answer_id, a.question_id, COALESCE(CAST(a.user_id AS TEXT), '') AS user_id,
		a.user_name, a.answer, a.created_at
	FROM answers a
	JOIN questions q ON q.question_id = a.question_id
	JOIN course_contents cc ON cc.content_id = q.content_id
	WHERE cc.course_id = :course_id
	ORDER BY a.created_at, a.answer_id`

	var answers []Answer
	if err := database.NamedQuerySlice(ctx, db, qa, in, &answers); err != nil {
		return nil, fmt.Errorf("selecting answers of course[%s]: %w", courseID, err)
	}

	replies := make(map[string][]Answer)
	for _, a := range answers {
		replies[a.QuestionID] = append(replies[a.QuestionID], a)
	}

	out := make(map[string][]Question)
	for _, q := range questions {
		q.Replies = replies[q.ID]
		if q.Replies == nil {
			q.Replies = []Answer{}
		}
		out[q.ContentID] = append(out[q.ContentID], q)
	}
	return out, nil
}

func reviewsBy(ctx context.Context, db sqlx.ExtContext, where string, in any) (map[string][]Review, error) {
	qr := `
	SELECT
		review_id, course_id, COALESCE(CAST(user_id AS TEXT), '') AS user_id,
		user_name, rating, comment, created_at
	FROM reviews ` + where + `
	ORDER BY created_at, review_id`

	var reviews []Review
	if err := database.NamedQuerySlice(ctx, db, qr, in, &reviews); err != nil {
		return nil, fmt.Errorf("selecting reviews: %w", err)
	}

	qp := `
	SELECT
		rr.reply_id, rr.review_id, COALESCE(CAST(rr.user_id AS TEXT), '') AS user_id,
		rr.user_name, rr.comment, rr.created_at
	FROM review_replies rr
	JOIN reviews r ON r.review_id = rr.review_id ` + aliased(where, "r") + `
	ORDER BY rr.created_at, rr.reply_id`

	var replies []Reply
	if err := database.NamedQuerySlice(ctx, db, qp, in, &replies); err != nil {
		return nil, fmt.Errorf("selecting review replies: %w", err)
	}

	byReview := make(map[string][]Reply)
	for _, rp := range replies {
		byReview[rp.ReviewID] = append(byReview[rp.ReviewID], rp)
	}

	out := make(map[string][]Review)
	for _, r := range reviews {
		r.Replies = byReview[r.ID]
		if r.Replies == nil {
			r.Replies = []Reply{}
		}
		out[r.CourseID] = append(out[r.CourseID], r)
	}
	return out, nil
}

func aliased(where, alias string) string {
	if where == "" {
		return ""
	}
	return "WHERE " + alias + ".course_id = :course_id"
}

// FetchPublic returns the public view of a course, served from the cache
// when present. Cache failures fall back to the database.
func FetchPublic(ctx context.Context, db sqlx.ExtContext, rdb redis.Cmdable, log logrus.FieldLogger, id string) (Course, error) {
	key, err := CacheKey(ctx, rdb, id)
	if err != nil {
		log.WithFields(logrus.Fields{"course_id": id, "error": err}).Warn("course cache unavailable")
	}

	var c Course
	if key != "" {
		err := cache.GetJSON(ctx, rdb, key, &c)
		switch {
		case err == nil:
			return c, nil
		case !errors.Is(err, cache.ErrMiss):
			log.WithFields(logrus.Fields{"course_id": id, "error": err}).Warn("course cache read failed")
		}
	}

	full, err := Fetch(ctx, db, id)
	if err != nil {
		return Course{}, err
	}
	c = full.Public()

	if key != "" {
		if err := cache.SetJSON(ctx, rdb, key, c, cache.Week); err != nil {
			log.WithFields(logrus.Fields{"course_id": id, "error": err}).Warn("course cache write failed")
		}
	}
	return c, nil
}

// Forget retires the cached public view of a course.
func Forget(ctx context.Context, rdb redis.Cmdable, log logrus.FieldLogger, id string) {
	log = log.WithField("course_id", id)

	gen, err := cache.Bump(ctx, rdb, generationKey(id))
	if err != nil {
		log.WithField("error", err).Warn("course cache invalidation failed")
		return
	}

	if err := cache.Delete(ctx, rdb, viewKey(id, gen-1)); err != nil {
		log.WithField("error", err).Warn("dropping retired course view failed")
	}
}

// Owns reports whether the user bought the course.
func Owns(ctx context.Context, db sqlx.ExtContext, userID, courseID string) (bool, error) {
	in := struct {
		UserID   string `db:"user_id"`
		CourseID string `db:"course_id"`
	}{userID, courseID}

	const q = `
	SELECT EXISTS (
		SELECT 1 FROM user_courses WHERE user_id = :user_id AND course_id = :course_id
	) AS owned`

	var out struct {
		Owned bool `db:"owned"`
	}
	if err := database.NamedQueryStruct(ctx, db, q, in, &out); err != nil {
		return false, fmt.Errorf("checking ownership of course[%s] by user[%s]: %w", courseID, userID, err)
	}
	return out.Owned, nil
}

// FetchOwnedContent returns the full lessons of a course to its owners and
// to admins.
func FetchOwnedContent(ctx context.Context, db sqlx.ExtContext, clm claims.Claims, id string) ([]Content, error) {
	c, err := Fetch(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if !clm.Admin() {
		owned, err := Owns(ctx, db, clm.UserID, id)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, ErrForbidden
		}
	}
	return c.Content, nil
}

// Create inserts a course and its lessons in one transaction.
func Create(ctx context.Context, db *sqlx.DB, cn CourseNew) (Course, error) {
	now := time.Now().UTC()
	row := courseRow{
		ID:             validate.GenerateID(),
		Name:           cn.Name,
		Description:    cn.Description,
		Categories:     cn.Categories,
		Price:          cn.Price,
		EstimatedPrice: cn.EstimatedPrice,
		Thumbnail:      cn.Thumbnail,
		Tags:           cn.Tags,
		Level:          cn.Level,
		DemoURL:        cn.DemoURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var err error
	if row.Benefits, err = marshal(cn.Benefits); err != nil {
		return Course{}, fmt.Errorf("encoding benefits: %w", err)
	}
	if row.Prerequisites, err = marshal(cn.Prerequisites); err != nil {
		return Course{}, fmt.Errorf("encoding prerequisites: %w", err)
	}

	contents := make([]contentRow, 0, len(cn.Content))
	for i, ct := range cn.Content {
		cr := contentRow{
			ID:             validate.GenerateID(),
			CourseID:       row.ID,
			Position:       i,
			Title:          ct.Title,
			Description:    ct.Description,
			VideoURL:       ct.VideoURL,
			VideoThumbnail: ct.VideoThumbnail,
			VideoSection:   ct.VideoSection,
			VideoLength:    ct.VideoLength,
			VideoPlayer:    ct.VideoPlayer,
			Suggestion:     ct.Suggestion,
		}
		if cr.Links, err = marshal(ct.Links); err != nil {
			return Course{}, fmt.Errorf("encoding links: %w", err)
		}
		if cr.Quiz, err = marshal(ct.Quiz); err != nil {
			return Course{}, fmt.Errorf("encoding quiz: %w", err)
		}
		if cr.Materials, err = marshal(ct.Materials); err != nil {
			return Course{}, fmt.Errorf("encoding materials: %w", err)
		}
		contents = append(contents, cr)
	}

	err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		const qc = `
		INSERT INTO courses
			(course_id, name, description, categories, price, estimated_price, thumbnail_url, tags,
			level, demo_url, benefits, prerequisites, ratings, purchased, created_at, updated_at)
		VALUES
			(:course_id, :name, :description, :categories, :price, :estimated_price, :thumbnail_url, :tags,
			:level, :demo_url, :benefits, :prerequisites, 0, 0, :created_at, :updated_at)`

		if _, err := database.NamedExecContext(ctx, tx, qc, row); err != nil {
			return fmt.Errorf("inserting course: %w", err)
		}

		const qt = `
		INSERT INTO course_contents
			(content_id, course_id, position, title, description, video_url, video_thumbnail,
			video_section, video_length, video_player, suggestion, links, quiz, materials)
		VALUES
			(:content_id, :course_id, :position, :title, :description, :video_url, :video_thumbnail,
			:video_section, :video_length, :video_player, :suggestion, :links, :quiz, :materials)`

		for _, cr := range contents {
			if _, err := database.NamedExecContext(ctx, tx, qt, cr); err != nil {
				return fmt.Errorf("inserting content[%d]: %w", cr.Position, err)
			}
		}
		return nil
	})
	if err != nil {
		return Course{}, fmt.Errorf("creating course[%s]: %w", cn.Name, err)
	}

	return Fetch(ctx, db, row.ID)
}
