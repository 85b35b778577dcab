package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "BITEBLISS_"

type Postgres struct {
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	DB              string        `koanf:"db"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"sslmode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type HttpServer struct {
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	BodyLimit       string        `koanf:"body_limit"`
}

type Auth struct {
	JWTSecret      string `koanf:"jwt_secret"`
	AdminJWTSecret string `koanf:"admin_jwt_secret"`
}

type Stripe struct {
	SecretKey     string        `koanf:"secret_key"`
	WebhookSecret string        `koanf:"webhook_secret"`
	Timeout       time.Duration `koanf:"timeout"`
	// Price ids attached to the seeded paid plans.
	PremiumMonthlyPriceID string `koanf:"premium_monthly_price_id"`
	PremiumYearlyPriceID  string `koanf:"premium_yearly_price_id"`
	ChefMonthlyPriceID    string `koanf:"chef_monthly_price_id"`
	ChefYearlyPriceID     string `koanf:"chef_yearly_price_id"`
}

type Client struct {
	URL string `koanf:"url"`
}

type AI struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

type Email struct {
	SendGridAPIKey string        `koanf:"sendgrid_api_key"`
	From           string        `koanf:"from"`
	FromName       string        `koanf:"from_name"`
	Timeout        time.Duration `koanf:"timeout"`
}

type Tracing struct {
	JaegerAgentHost string `koanf:"jaeger_agent_host"`
	ServiceName     string `koanf:"service_name"`
}

type Config struct {
	Postgres Postgres   `koanf:"postgres"`
	Http     HttpServer `koanf:"http"`
	Auth     Auth       `koanf:"auth"`
	Stripe   Stripe     `koanf:"stripe"`
	Client   Client     `koanf:"client"`
	AI       AI         `koanf:"ai"`
	Email    Email      `koanf:"email"`
	Tracing  Tracing    `koanf:"tracing"`
}

func Default() Config {
	return Config{
		Postgres: Postgres{
			Host:     "localhost",
			Port:     "5432",
			DB:       "bitebliss",
			Username: "postgres",
			SSLMode:  "disable",
		},
		Http: HttpServer{
			Address:         "localhost:1337",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "2M",
		},
		Stripe: Stripe{
			Timeout: 10 * time.Second,
		},
		Client: Client{
			URL: "http://localhost:3000",
		},
		AI: AI{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
		Email: Email{
			From:     "noreply@bitebliss.com",
			FromName: "BiteBliss",
			Timeout:  15 * time.Second,
		},
		Tracing: Tracing{
			ServiceName: "bitebliss",
		},
	}
}

// Load reads defaults and overlays BITEBLISS_ prefixed environment variables.
// Nested keys are separated by a double underscore, e.g.
// BITEBLISS_STRIPE__SECRET_KEY sets stripe.secret_key.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}
