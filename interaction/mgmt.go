package interaction

import (
	"context"
	"fmt"
	"strings"

	"lsbgear/clock"
	"lsbgear/db"
	"lsbgear/errs"
	"lsbgear/models"
)

// handleMgmtButton handles mgmt:root, mgmt:filter:*, mgmt:export:csv. Only
// admins reach these — the Overall Management button is rendered on the
// Header message regardless of who can see it, so the permission check
// lives here rather than at render time.
func (r *Router) handleMgmtButton(ctx context.Context, btn Button, verb string, args []string) (Reply, error) {
	if !btn.Actor.IsAdmin {
		return errReply(errs.New(errs.PermissionDenied, "management actions are admin-only"))
	}
	switch verb {
	case "root":
		return ephemeral("Equipment management: use Filter to browse, or Export CSV for the full ledger.")
	case "filter":
		return r.handleMgmtFilter(ctx, btn, args)
	case "export":
		if len(args) == 1 && args[0] == "csv" {
			return r.handleMgmtExportCSV(ctx, btn)
		}
		return errReply(errs.New(errs.NotFound, "unrecognized export action"))
	default:
		return errReply(errs.New(errs.NotFound, "unrecognized management action"))
	}
}

// handleMgmtFilter renders a plain-text summary of reservations matching
// the filter encoded in args (equipment/user/status), one of:
//   mgmt:filter:equipment:{id}
//   mgmt:filter:user:{id}
//   mgmt:filter:status:{status}
func (r *Router) handleMgmtFilter(ctx context.Context, btn Button, args []string) (Reply, error) {
	if len(args) != 2 {
		return errReply(errs.New(errs.InvalidInput, "malformed filter"))
	}
	f := db.ExportFilter{GuildID: btn.GuildID}
	switch args[0] {
	case "equipment":
		id, err := parseID(args[1])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed equipment id"))
		}
		f.EquipmentID = &id
	case "user":
		id, err := parseID(args[1])
		if err != nil {
			return errReply(errs.New(errs.InvalidInput, "malformed user id"))
		}
		f.UserID = &id
	case "status":
		status := reservationStatusFromString(args[1])
		if status == nil {
			return errReply(errs.New(errs.InvalidInput, "status must be Confirmed or Cancelled"))
		}
		f.Status = status
	default:
		return errReply(errs.New(errs.InvalidInput, "unrecognized filter dimension"))
	}

	rows, err := r.Store.ListForExport(ctx, f)
	if err != nil {
		return Reply{}, err
	}
	if len(rows) == 0 {
		return ephemeral("No reservations match that filter.")
	}

	var b strings.Builder
	limit := len(rows)
	if limit > 20 {
		limit = 20
	}
	for _, row := range rows[:limit] {
		fmt.Fprintf(&b, "#%d %s — user %d, %s to %s (%s)\n",
			row.ReservationID, row.EquipmentName, row.UserID,
			clock.FormatJST(row.StartUTC), clock.FormatJST(row.EndUTC), row.Status)
	}
	if len(rows) > limit {
		fmt.Fprintf(&b, "...and %d more. Use Export CSV for the full list.\n", len(rows)-limit)
	}
	return ephemeral(b.String())
}

func (r *Router) handleMgmtExportCSV(ctx context.Context, btn Button) (Reply, error) {
	// The CSV bytes themselves are assembled by csvexport.Write against the
	// same db.Store.ListForExport rows; the transport (controllers.ReservationAdminController's
	// IssueExportLink/ExportCSV for the web dashboard, lsbctl for the CLI) owns turning that into a
	// signed download link or a file, so the router only confirms the guild
	// has data worth exporting.
	rows, err := r.Store.ListForExport(ctx, db.ExportFilter{GuildID: btn.GuildID})
	if err != nil {
		return Reply{}, err
	}
	if len(rows) == 0 {
		return ephemeral("No reservations to export yet.")
	}
	return ephemeral("Export ready — check the admin dashboard's Export CSV link.")
}

func reservationStatusFromString(s string) *models.ReservationStatus {
	switch s {
	case "Confirmed", "Cancelled":
		v := models.ReservationStatus(s)
		return &v
	default:
		return nil
	}
}
