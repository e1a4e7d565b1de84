package app

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"lsbgear/db"
	"lsbgear/session"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// aliases so handlers don't need to import gin directly
type Ctx = gin.Context
type H = gin.H

// App bundles every collaborator main.go and the CLI wire up.
type App struct {
	Router    *gin.Engine
	DB        *gorm.DB
	Store     *db.Store
	AdminRepo *db.AdminRepo
	RDB       *redis.Client
	WA        *webauthn.WebAuthn
	Config    Config

	appSess *session.AppSessionStore
}

// Config is populated from environment variables.
type Config struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPwd       string
	WebOrigin      string
	RPID           string
	RPOrigins      []string
	SessionTTL     time.Duration
	AdminEmails    []string
	BootstrapEmail string
	ExportLinkKey  []byte
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

func MustNew() *App {
	cfg := loadConfig()

	dbConn := db.Connect(cfg.DatabaseURL)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "LSB Gear Passkeys",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		log.Fatalf("webauthn: %v", err)
	}
	// dashboard session TTL, overridable via env in a future pass
	appTTL := 1 * 24 * time.Hour

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	a := &App{
		Router:    r,
		DB:        dbConn,
		Store:     db.NewStore(dbConn),
		AdminRepo: db.NewAdminRepo(dbConn),
		RDB:       rdb,
		WA:        wa,
		Config:    cfg,
		appSess:   session.NewAppSessionStore(rdb, appTTL),
	}
	return a
}

func (a *App) Close() { _ = a.RDB.Close() }

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	ttlSec := get("SESSION_TTL_SECONDS", "600")
	var ttl time.Duration = 10 * time.Minute
	if d, err := time.ParseDuration(ttlSec + "s"); err == nil {
		ttl = d
	}
	originsCSV := get("RP_ORIGINS", "http://localhost:5173")
	var origins []string
	for _, o := range strings.Split(originsCSV, ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	adminsCSV := os.Getenv("ADMIN_EMAILS") // comma-separated, e.g. "admin@ex.com,ops@ex.com"
	var admins []string
	for _, s := range strings.Split(adminsCSV, ",") {
		if t := strings.TrimSpace(s); t != "" {
			admins = append(admins, strings.ToLower(t))
		}
	}
	exportKey := get("EXPORT_LINK_SECRET", "dev-export-link-secret-change-me")
	return Config{
		DatabaseURL:    get("DATABASE_URL", "sqlite://./data/bot.db"),
		RedisAddr:      get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       os.Getenv("REDIS_PASSWORD"),
		WebOrigin:      get("WEB_ORIGIN", "http://localhost:5173"),
		RPID:           get("RP_ID", "localhost"),
		RPOrigins:      origins,
		SessionTTL:     ttl,
		AdminEmails:    admins,
		BootstrapEmail: strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
		ExportLinkKey:  []byte(exportKey),
	}
}
