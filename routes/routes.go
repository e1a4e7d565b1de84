package routes

import (
	"net/http"
	"strings"
	"time"

	"lsbgear/app"
	"lsbgear/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// controllers and their dependencies
	s := controllers.GetSrv(a)
	appSess := s.GetAppSess()
	uc := controllers.GetUserController(s.Repo, appSess, a.Config)
	inviteCtl := controllers.GetInviteController(s)
	resCtl := controllers.NewReservationAdminController(s)
	eqCtl := controllers.NewEquipmentOverrideController(s)

	// shared middleware
	authMW := app.AuthRequired(appSess, s.Repo, a.Config)
	adminMW := app.AdminOnly(a.Config, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)
	secureCookie := strings.HasPrefix(a.Config.WebOrigin, "https://")

	// ------------------------------
	// WebAuthn (public + protected)
	// ------------------------------
	wa := r.Group("/webauthn")
	{
		// public: register/login flow
		wa.POST("/register/begin", s.BeginRegistration)
		wa.POST("/register/finish", s.FinishRegistration)

		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}

	waAuth := wa.Group("", authMW, seenMW)
	{
		waAuth.GET("/whoami", s.WhoAmI)

		// logout
		waAuth.POST("/logout", func(c *app.Ctx) {
			if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
				_ = s.GetAppSess().Delete(c.Request.Context(), ck.Value)
			}
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     app.AppSessionCookie,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   secureCookie,
			})
			c.JSON(http.StatusOK, app.H{"ok": true})
		})
	}

	// logged-in user adding another credential (e.g. a second device)
	creds := r.Group("/api/credentials", authMW, seenMW)
	{
		creds.POST("/add/begin", s.BeginAddCredential)
		creds.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// invites + user management (admin only)
	// ------------------------------
	admin := r.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)

		admin.GET("/guilds", resCtl.ListGuilds)
		admin.GET("/guilds/:id/reservations", resCtl.ListReservations)
		admin.POST("/guilds/:id/export/link", resCtl.IssueExportLink)
		admin.POST("/guilds/:id/settings", resCtl.UpdateGuildSettings)

		admin.POST("/equipment/:id/override", eqCtl.OverrideStatus)
		admin.GET("/equipment/:id/logs", eqCtl.ListLogs)
	}

	// The CSV itself is fetched with the signed link's own token, not the
	// session cookie, so it lives outside authMW/adminMW.
	r.GET("/admin/export.csv", resCtl.ExportCSV)

	// ------------------------------
	// user management (admin only)
	// ------------------------------
	users := r.Group("/api/users", authMW, adminMW)
	{
		users.GET("", uc.ListUsers)   // ?q=&page=&size=
		users.GET("/:id", uc.GetUser)
		users.DELETE("/:id", uc.DeleteUser)
	}
}
