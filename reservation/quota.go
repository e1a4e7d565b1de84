package reservation

import (
	"time"

	"gorm.io/gorm"
)

// QuotaGuard is implemented by quota.Guard. Declaring the interface here
// rather than importing the quota package keeps reservation the
// lower-level module — quota depends on reservation's types, not the
// other way around.
type QuotaGuard interface {
	Check(tx *gorm.DB, guildID, userID int64, roleIDs []int64, start, end, now time.Time) error
}

// noQuota is used when an Engine is built without a Guard (tests, or
// guilds that never configured quotas) — Check always passes.
type noQuota struct{}

func (noQuota) Check(tx *gorm.DB, guildID, userID int64, roleIDs []int64, start, end, now time.Time) error {
	return nil
}
