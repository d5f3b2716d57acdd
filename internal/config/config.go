package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type App struct {
	Port               string
	DatabaseURL        string
	JWTSecret          string
	MidtransServerKey  string
	MidtransProduction bool
	UseEmailReputation bool
	MailFrom           string
	NotifyWorkers      int
	NotifyBuffer       int
	SweepInterval      time.Duration
	Env                string
}

func Load() App {
	return App{
		Port:               getenv("PORT", "8080"),
		DatabaseURL:        must("DATABASE_URL"),
		JWTSecret:          getenv("JWT_SECRET", "local_dev_secret"),
		MidtransServerKey:  must("MIDTRANS_SERVER_KEY"),
		MidtransProduction: getbool("MIDTRANS_PRODUCTION", false),
		UseEmailReputation: getbool("USE_EMAIL_REPUTATION", false),
		MailFrom:           getenv("MAIL_FROM", "Marketplace<onboarding@resend.dev>"),
		NotifyWorkers:      getint("NOTIFY_WORKERS", 4),
		NotifyBuffer:       getint("NOTIFY_BUFFER", 256),
		SweepInterval:      getduration("SWEEP_INTERVAL", time.Minute),
		Env:                getenv("APP_ENV", "dev"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getduration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
