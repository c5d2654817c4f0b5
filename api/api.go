package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-learning/api/middleware"
	"github.com/irsalhamdi/e-learning/api/web"
	"github.com/irsalhamdi/e-learning/core/auth"
	"github.com/irsalhamdi/e-learning/core/blog"
	"github.com/irsalhamdi/e-learning/core/course"
	"github.com/irsalhamdi/e-learning/core/notification"
	"github.com/irsalhamdi/e-learning/core/order"
	"github.com/irsalhamdi/e-learning/core/payment"
	"github.com/irsalhamdi/e-learning/core/user"
	"github.com/irsalhamdi/e-learning/rate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin           string
	Log                  logrus.FieldLogger
	DB                   *sqlx.DB
	Redis                redis.Cmdable
	Issuer               *auth.Issuer
	Limiter              *rate.Limiter
	Paypal               *paypal.Client
	Stripe               *stripecl.API
	StripePublishableKey string
	Providers            map[string]auth.Provider
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	db, rdb, log := cfg.DB, cfg.Redis, cfg.Log

	authen := auth.Authenticate(cfg.Issuer, db, rdb, log)
	admin := auth.Admin()
	limit := middleware.RateLimit(cfg.Limiter)

	a.Handle(http.MethodPost, "/registration", auth.HandleRegistration(db, rdb, cfg.Issuer, log))
	a.Handle(http.MethodPost, "/login", auth.HandleLogin(db, rdb, cfg.Issuer, log), limit)
	a.Handle(http.MethodPost, "/auth/refresh", auth.HandleRefresh(cfg.Issuer), limit)
	a.Handle(http.MethodPost, "/auth/{provider}/mobile/callback", auth.HandleOauthCallback(db, rdb, cfg.Issuer, cfg.Providers, log), limit)

	a.Handle(http.MethodGet, "/me", user.HandleMe(db, rdb, log), authen)
	a.Handle(http.MethodGet, "/user/{id}", user.HandleShow(db), authen)
	a.Handle(http.MethodPut, "/update-user-info", user.HandleUpdateInfo(db, rdb, log), authen)
	a.Handle(http.MethodPut, "/update-user-avatar", user.HandleUpdateAvatar(db, rdb, log), authen)
	a.Handle(http.MethodPut, "/update-user-password", user.HandleUpdatePassword(db, rdb, log), authen)
	a.Handle(http.MethodGet, "/notifications", notification.HandleList(db), authen)

	a.Handle(http.MethodGet, "/get-courses", course.HandleList(db))
	a.Handle(http.MethodGet, "/get-course/{id}", course.HandleShow(db, rdb, log))
	a.Handle(http.MethodGet, "/get-course-content/{id}", course.HandleShowContent(db), authen)
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(db), authen, admin)
	a.Handle(http.MethodPut, "/add-question", course.HandleAddQuestion(db, rdb, log), authen)
	a.Handle(http.MethodPut, "/add-answer", course.HandleAddAnswer(db, rdb, log), authen)
	a.Handle(http.MethodPut, "/add-review/{id}", course.HandleAddReview(db, rdb, log), authen)
	a.Handle(http.MethodPut, "/add-reply", course.HandleAddReply(db, rdb, log), authen, admin)

	a.Handle(http.MethodGet, "/blog", blog.HandleList(db))
	a.Handle(http.MethodGet, "/blog/{id}", blog.HandleShow(db))
	a.Handle(http.MethodPost, "/blog", blog.HandleCreate(db), authen, admin)

	a.Handle(http.MethodPost, "/create-mobile-order", order.HandleCreateMobile(db, rdb, log), authen)
	a.Handle(http.MethodGet, "/user-orders/{userId}", order.HandleListByUser(db), authen)

	a.Handle(http.MethodGet, "/payment/stripepublishablekey", payment.HandleStripePublishableKey(cfg.StripePublishableKey))
	a.Handle(http.MethodPost, "/payment", payment.HandleStripe(cfg.Stripe), authen, limit)
	a.Handle(http.MethodPost, "/payment/paypal", payment.HandlePaypal(cfg.Paypal), authen, limit)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {
	handler = web.WrapMiddleware(mw, handler)
	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {
			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
