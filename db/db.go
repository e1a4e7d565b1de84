package db

import (
	"fmt"
	"log"
	"strings"

	"lsbgear/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens a GORM connection against dsn, picking the dialector from
// its scheme: "sqlite://" (the §6 default, "sqlite://./data/bot.db") uses
// the mattn/go-sqlite3-backed driver; anything else is treated as a
// Postgres DSN.
func Connect(dsn string) *gorm.DB {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		// _txlock=immediate makes every transaction open with BEGIN IMMEDIATE
		// instead of SQLite's default DEFERRED, so the write lock is acquired
		// up front -- the mechanism §5's linearizability claim rests on.
		// busy_timeout lets a writer that loses that race block and retry
		// instead of failing SQLITE_BUSY immediately.
		path += sep + "_txlock=immediate&_busy_timeout=5000"
		dialector = sqlite.Open(path)
	default:
		dialector = postgres.Open(dsn)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := Migrate(conn); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	return conn
}

// Migrate applies the full schema forward-only; there is no runtime
// migration rollback (§6).
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Guild{},
		&models.Tag{},
		&models.Location{},
		&models.Equipment{},
		&models.EquipmentLog{},
		&models.Reservation{},
		&models.TransferRequest{},
		&models.ManagedMessage{},
		&models.Job{},
		&models.SentReminder{},
		&models.QuotaSettings{},
		&models.QuotaRoleOverride{},
		&models.WaitlistEntry{},
		&models.WaitlistOffer{},
		&models.AdminUser{},
		&models.AdminCredential{},
		&models.AdminInvite{},
	); err != nil {
		return err
	}

	// At most one Pending transfer per reservation.
	return conn.Exec(fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS transfer_requests_one_pending_per_reservation
		 ON transfer_requests (reservation_id) WHERE status = 'Pending';`,
	)).Error
}
