// controllers/reservation_admin_controller.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"lsbgear/app"
	"lsbgear/csvexport"
	"lsbgear/db"
	"lsbgear/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ReservationAdminController backs the admin dashboard's reservation ledger:
// the filterable list, the signed CSV export link, and per-guild
// notification settings — the web mirror of the /setup wizard and the
// mgmt:* buttons (lsbgear/interaction).
type ReservationAdminController struct{ *Srv }

func NewReservationAdminController(s *Srv) *ReservationAdminController {
	return &ReservationAdminController{Srv: s}
}

func exportFilterFromQuery(c *gin.Context, guildID int64) db.ExportFilter {
	f := db.ExportFilter{GuildID: guildID}
	if v := c.Query("equipmentId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.EquipmentID = &id
		}
	}
	if v := c.Query("userId"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.UserID = &id
		}
	}
	if v := c.Query("status"); v == "Confirmed" || v == "Cancelled" {
		status := models.ReservationStatus(v)
		f.Status = &status
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}
	return f
}

// GET /admin/guilds/:id/reservations?equipmentId=&userId=&status=&from=&to=
func (rc *ReservationAdminController) ListReservations(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid guild id"})
		return
	}
	rows, err := rc.Store.ListForExport(c.Request.Context(), exportFilterFromQuery(c, guildID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"reservations": rows})
}

type exportLinkClaims struct {
	GuildID     int64  `json:"gid"`
	EquipmentID *int64 `json:"eid,omitempty"`
	UserID      *int64 `json:"uid,omitempty"`
	Status      string `json:"st,omitempty"`
	jwt.RegisteredClaims
}

// POST /admin/guilds/:id/export/link — issues a signed, time-boxed URL
// good for 10 minutes that the dashboard can hand to the browser for a
// direct (unauthenticated-by-cookie) download, per §6's CSV export.
func (rc *ReservationAdminController) IssueExportLink(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid guild id"})
		return
	}
	f := exportFilterFromQuery(c, guildID)
	claims := exportLinkClaims{
		GuildID:     f.GuildID,
		EquipmentID: f.EquipmentID,
		UserID:      f.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if f.Status != nil {
		claims.Status = string(*f.Status)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(rc.Cfg.ExportLinkKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{
		"url":       "/admin/export.csv?token=" + signed,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

// GET /admin/export.csv?token=... — deliberately outside the authMW/adminMW
// group: the signed token (not the session cookie) is the credential, so
// the link keeps working from a plain browser tab or curl.
func (rc *ReservationAdminController) ExportCSV(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing token"})
		return
	}
	var claims exportLinkClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return rc.Cfg.ExportLinkKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		c.JSON(http.StatusForbidden, app.H{"error": "invalid or expired export link"})
		return
	}

	f := db.ExportFilter{GuildID: claims.GuildID, EquipmentID: claims.EquipmentID, UserID: claims.UserID}
	if claims.Status != "" {
		status := models.ReservationStatus(claims.Status)
		f.Status = &status
	}
	rows, err := rc.Store.ListForExport(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="reservations.csv"`)
	if err := csvexport.Write(c.Writer, rows); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
}

type guildSettingsReq struct {
	ReservationChannelID *int64  `json:"reservationChannelId"`
	AdminRoleIDs         []int64 `json:"adminRoleIds"`
	DMFallbackToChannel  *bool   `json:"dmFallbackToChannel"`
	PreStartMin          *int    `json:"preStartMin"`
	PreEndMin            *int    `json:"preEndMin"`
	OverdueEveryH        *int    `json:"overdueEveryH"`
	OverdueMaxCount      *int    `json:"overdueMaxCount"`
}

// POST /admin/guilds/:id/settings — the dashboard's mirror of the /setup
// wizard's wiz:notify step (lsbgear/interaction, lsbgear/wizard).
func (rc *ReservationAdminController) UpdateGuildSettings(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid guild id"})
		return
	}
	var req guildSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	upd := db.GuildSettingsUpdate{
		ReservationChannelID: req.ReservationChannelID,
		AdminRoleIDs:         req.AdminRoleIDs,
		DMFallbackToChannel:  req.DMFallbackToChannel,
		PreStartMin:          req.PreStartMin,
		PreEndMin:            req.PreEndMin,
		OverdueEveryH:        req.OverdueEveryH,
		OverdueMaxCount:      req.OverdueMaxCount,
	}
	if err := rc.Store.UpdateGuildSettings(c.Request.Context(), guildID, upd); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	g, err := rc.Store.GetGuild(c.Request.Context(), guildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"guild": g})
}

// GET /admin/guilds — the guild picker the dashboard shows before drilling
// into one guild's reservations/settings.
func (rc *ReservationAdminController) ListGuilds(c *gin.Context) {
	gs, err := rc.Store.ListGuilds(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"guilds": gs})
}
