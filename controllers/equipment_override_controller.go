// controllers/equipment_override_controller.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"lsbgear/app"
	"lsbgear/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EquipmentOverrideController lets a dashboard admin force an equipment's
// status outside the normal reserve/return flow (e.g. "Unavailable —
// under repair"), the admin-web equivalent of an ops runbook action. Every
// override is appended to the same equipment_logs audit trail the
// reservation.Engine writes to, so the history reads as one timeline
// regardless of which surface made the change.
type EquipmentOverrideController struct{ *Srv }

func NewEquipmentOverrideController(s *Srv) *EquipmentOverrideController {
	return &EquipmentOverrideController{Srv: s}
}

type overrideStatusReq struct {
	Status   models.EquipmentStatus `json:"status" binding:"required"`
	Location *string                `json:"location"`
	Reason   *string                `json:"reason"`
}

// POST /admin/equipment/:id/override
func (oc *EquipmentOverrideController) OverrideStatus(c *gin.Context) {
	equipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid equipment id"})
		return
	}
	var req overrideStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	switch req.Status {
	case models.EquipmentAvailable, models.EquipmentUnavailable:
	default:
		c.JSON(http.StatusBadRequest, app.H{"error": "status must be Available or Unavailable"})
		return
	}

	actorName, _ := c.Get("username")
	name, _ := actorName.(string)

	err = oc.Store.Tx(c.Request.Context(), func(tx *gorm.DB) error {
		var before models.Equipment
		if err := tx.First(&before, "id = ?", equipmentID).Error; err != nil {
			return err
		}
		prevStatus := before.Status
		if err := oc.Store.UpdateEquipmentStatus(tx, equipmentID, req.Status, req.Location, req.Reason); err != nil {
			return err
		}
		newStatus := req.Status
		entry := &models.EquipmentLog{
			EquipmentID:    equipmentID,
			Action:         models.LogStatusChanged,
			PreviousStatus: &prevStatus,
			NewStatus:      &newStatus,
			Location:       req.Location,
			Notes:          actionNote(req.Reason, name),
			TimestampUTC:   time.Now().UTC(),
		}
		return oc.Store.AppendEquipmentLog(tx, entry)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func actionNote(reason *string, actor string) *string {
	if reason == nil && actor == "" {
		return nil
	}
	note := "dashboard override"
	if actor != "" {
		note += " by " + actor
	}
	if reason != nil && *reason != "" {
		note += ": " + *reason
	}
	return &note
}

// GET /admin/equipment/:id/logs
func (oc *EquipmentOverrideController) ListLogs(c *gin.Context) {
	equipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid equipment id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := oc.Store.ListEquipmentLogs(c.Request.Context(), equipmentID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"logs": logs})
}
