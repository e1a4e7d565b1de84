package reconcile

import (
	"fmt"
	"strings"

	"lsbgear/clock"
	"lsbgear/models"
)

// upcomingLimit is §4.5's "next up-to-5 confirmed upcoming reservations".
const upcomingLimit = 5

// RenderHeader is the Header message's fixed text — just the management
// button lives client-side; the content itself never varies.
func RenderHeader(guildID int64) string {
	return "=== Equipment Management ==="
}

// RenderEquipmentEmbed implements §4.5's deterministic embed text: same
// inputs, byte-identical render, so the planner's content-hash comparison
// never produces a spurious edit. tagName is "" when the equipment has no
// tag.
func RenderEquipmentEmbed(eq models.Equipment, tagName string, currentLoan *models.Reservation, upcoming []models.Reservation) string {
	var b strings.Builder

	if tagName != "" {
		fmt.Fprintf(&b, "[%s] %s\n", tagName, eq.Name)
	} else {
		fmt.Fprintf(&b, "%s\n", eq.Name)
	}

	switch eq.Status {
	case models.EquipmentUnavailable:
		reason := ""
		if eq.UnavailableReason != nil {
			reason = *eq.UnavailableReason
		}
		fmt.Fprintf(&b, "Unavailable — %s\n", reason)
	default:
		if currentLoan != nil {
			loc := ""
			if currentLoan.Location != nil {
				loc = *currentLoan.Location
			}
			fmt.Fprintf(&b, "Loaned — <@%d> (%s)\n", currentLoan.UserID, loc)
		} else {
			b.WriteString("Available\n")
		}
	}

	n := upcoming
	if len(n) > upcomingLimit {
		n = n[:upcomingLimit]
	}
	for _, r := range n {
		fmt.Fprintf(&b, "  %s – %s: <@%d>\n", clock.FormatJST(r.StartUTC), clock.FormatJST(r.EndUTC), r.UserID)
	}

	return b.String()
}
