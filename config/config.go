package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web    Web
	DB     DB
	Redis  Redis
	Auth   Auth
	Stripe Stripe
	Paypal Paypal
	Oauth  Oauth
	Cors   Cors
	Rate   Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:elearning"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:0"`
	DisableTLS   bool   `conf:"default:true"`
}

type Redis struct {
	Addr     string `conf:"default:localhost:6379"`
	Password string `conf:"mask"`
	DB       int    `conf:"default:0"`
}

type Auth struct {
	AccessSecret string        `conf:"default:change-me,mask"`
	AccessTTL    time.Duration `conf:"default:15m"`
	RefreshTTL   time.Duration `conf:"default:720h"`
}

type Stripe struct {
	APISecret      string `conf:"mask"`
	PublishableKey string
	URL            string
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api-m.sandbox.paypal.com"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

type Cors struct {
	Origin string
}

type Rate struct {
	Burst    int           `conf:"default:5"`
	Interval time.Duration `conf:"default:1s"`
	Expiry   time.Duration `conf:"default:10m"`
}
