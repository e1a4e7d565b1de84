package app

import (
	"net/http"
	"strings"

	"lsbgear/db"
	"lsbgear/session"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "app_session"

func AuthRequired(appSess *session.AppSessionStore, repo *db.AdminRepo, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		// confirms the account still exists and records isAdmin on the
		// context; AdminOnly still re-checks the account on its own
		u, err := repo.FindByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("userID", as.UserID)
		c.Set("username", u.Username)
		c.Set("isAdmin", u.IsAdmin)
		email := strings.ToLower(u.Username)
		for _, admin := range cfg.AdminEmails {
			if email == admin {
				c.Set("isAdmin", true)
			}
		}

		c.Next()
	}
}

func AdminOnly(cfg Config, repo *db.AdminRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		// userID was already set by AuthRequired
		v, ok := c.Get("userID")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		uid, _ := v.(string)
		u, err := repo.FindByID(c.Request.Context(), uid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		email := strings.ToLower(u.Username)
		for _, admin := range cfg.AdminEmails {
			if email == admin {
				c.Next()
				return
			}
		}

		if !u.IsAdmin {
			c.AbortWithStatusJSON(403, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
