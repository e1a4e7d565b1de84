// Package csvexport writes the §6 reservation export: RFC 4180 CSV with
// columns reservation_id, equipment_name, user_id, start_jst, end_jst,
// start_utc, end_utc, status, location, returned_at_jst, return_location.
// Shared by the admin web dashboard's GET /admin/export.csv and
// cmd/lsbctl's export-csv subcommand, so the column order is defined once.
package csvexport

import (
	"encoding/csv"
	"io"
	"strconv"

	"lsbgear/clock"
	"lsbgear/db"
)

var header = []string{
	"reservation_id", "equipment_name", "user_id", "start_jst", "end_jst",
	"start_utc", "end_utc", "status", "location", "returned_at_jst", "return_location",
}

const timeLayout = "2006-01-02T15:04:05Z"

// Write renders rows as CSV to w, using encoding/csv for proper
// comma/quote escaping per RFC 4180 rather than hand-joined strings.
func Write(w io.Writer, rows []db.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		location := ""
		if r.Location != nil {
			location = *r.Location
		}
		returnedAtJST := ""
		if r.ReturnedAtUTC != nil {
			returnedAtJST = clock.FormatJST(*r.ReturnedAtUTC)
		}
		returnLocation := ""
		if r.ReturnLocation != nil {
			returnLocation = *r.ReturnLocation
		}
		record := []string{
			strconv.FormatInt(r.ReservationID, 10),
			r.EquipmentName,
			strconv.FormatInt(r.UserID, 10),
			clock.FormatJST(r.StartUTC),
			clock.FormatJST(r.EndUTC),
			r.StartUTC.UTC().Format(timeLayout),
			r.EndUTC.UTC().Format(timeLayout),
			string(r.Status),
			location,
			returnedAtJST,
			returnLocation,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
