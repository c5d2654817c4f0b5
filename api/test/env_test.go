package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/irsalhamdi/e-learning/api"
	"github.com/irsalhamdi/e-learning/config"
	"github.com/irsalhamdi/e-learning/core/auth"
	"github.com/irsalhamdi/e-learning/core/claims"
	"github.com/irsalhamdi/e-learning/core/course"
	"github.com/irsalhamdi/e-learning/core/payment"
	"github.com/irsalhamdi/e-learning/core/user"
	"github.com/irsalhamdi/e-learning/database/dbtest"
	"github.com/irsalhamdi/e-learning/rate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type TestEnv struct {
	*httptest.Server
	DB     *sqlx.DB
	Redis  *redis.Client
	Mini   *miniredis.Miniredis
	Stripe *mockStripe
	Paypal *mockPaypal
	Google *fakeProvider
}

func NewTestEnv(t *testing.T, name string) *TestEnv {
	t.Helper()

	db := dbtest.NewDB(t, name)
	rdb, mr := dbtest.NewRedis(t)

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &TestEnv{
		DB:     db,
		Redis:  rdb,
		Mini:   mr,
		Stripe: &mockStripe{},
		Paypal: &mockPaypal{},
		Google: &fakeProvider{codes: map[string]auth.Identity{}},
	}

	stripeSrv := httptest.NewServer(env.Stripe.handle())
	t.Cleanup(stripeSrv.Close)
	paypalSrv := httptest.NewServer(env.Paypal.handle())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("client", "secret", paypalSrv.URL)
	if err != nil {
		t.Fatal(err)
	}

	limiter := rate.NewLimiter(1000, time.Millisecond, time.Minute)
	t.Cleanup(limiter.Stop)

	mux := api.APIMux(api.APIConfig{
		Log:                  log,
		DB:                   db,
		Redis:                rdb,
		Issuer:               auth.NewIssuer(config.Auth{AccessSecret: "test", AccessTTL: time.Minute, RefreshTTL: time.Hour}, rdb),
		Limiter:              limiter,
		Paypal:               pp,
		Stripe:               payment.NewStripe("sk_test", stripeSrv.URL),
		StripePublishableKey: "pk_test",
		Providers:            map[string]auth.Provider{"google": env.Google},
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)
	return env
}

type fakeProvider struct {
	codes map[string]auth.Identity
}

func (p *fakeProvider) Identify(ctx context.Context, code string) (auth.Identity, error) {
	id, ok := p.codes[code]
	if !ok {
		return auth.Identity{}, errors.New("unknown code")
	}
	return id, nil
}

type session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         user.Profile `json:"user"`
}

// call sends in as JSON and decodes the answer into out when the status
// matches want.
func (env *TestEnv) call(t *testing.T, method, path, token string, in any, want int, out any) {
	t.Helper()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		b, _ := io.ReadAll(w.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, want, w.StatusCode, b)
	}

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
}

var seq int

func (env *TestEnv) register(t *testing.T) session {
	t.Helper()
	seq++

	in := map[string]string{
		"name":     fmt.Sprintf("Learner %d", seq),
		"email":    fmt.Sprintf("learner%d@example.com", seq),
		"password": "secret123",
	}

	var s session
	env.call(t, http.MethodPost, "/registration", "", in, http.StatusCreated, &s)
	return s
}

func (env *TestEnv) admin(t *testing.T) session {
	t.Helper()
	s := env.register(t)

	if _, err := env.DB.Exec(`UPDATE users SET role = $1 WHERE user_id = $2`, claims.RoleAdmin, s.User.ID); err != nil {
		t.Fatal(err)
	}

	var out session
	in := map[string]string{"email": s.User.Email, "password": "secret123"}
	env.call(t, http.MethodPost, "/login", "", in, http.StatusOK, &out)
	return out
}

func (env *TestEnv) createCourse(t *testing.T, adminToken, name string, price float64) course.Course {
	t.Helper()

	in := course.CourseNew{
		Name:        name,
		Description: "learn " + name,
		Categories:  "programming",
		Price:       price,
		Level:       "beginner",
		Benefits:    []course.Title{{Title: "ship it"}},
		Content: []course.ContentNew{{
			Title:    "Lesson 1",
			VideoURL: "https://video.example.com/" + name,
			Links:    []course.Link{{Title: "docs", URL: "https://example.com/docs"}},
			Quiz: []course.QuizQuestion{{
				Question: "pick a",
				Options:  []course.QuizOption{{Text: "a", IsCorrect: true}, {Text: "b"}},
			}},
		}},
	}

	var out struct {
		Course course.Course `json:"course"`
	}
	env.call(t, http.MethodPost, "/courses", adminToken, in, http.StatusCreated, &out)
	return out.Course
}
