// Package quota is QuotaGuard (C11): per-guild/per-role borrowing limits
// enforced inside reservation.Engine's create/modify transaction, grounded
// in original_source/src/quotas.rs and quota_validator.rs.
package quota

import (
	"time"

	"lsbgear/db"
	"lsbgear/errs"

	"gorm.io/gorm"
)

// LimitKind distinguishes which limit a QuotaExceeded error tripped, so a
// handler can render a specific message.
type LimitKind string

const (
	LimitActiveCount  LimitKind = "ActiveCount"
	LimitOverlap      LimitKind = "Overlap"
	LimitRollingHours LimitKind = "RollingHours"
)

// Exceeded is the Data payload of an errs.Domain{Kind: errs.QuotaExceeded}.
type Exceeded struct {
	Kind  LimitKind
	Limit int
	Have  float64
}

// Guard implements reservation.QuotaGuard.
type Guard struct {
	// No fields: the guard itself only ever sees role IDs, so the caller
	// decides whether to skip the check entirely for admin/system actors.
}

func NewGuard() *Guard { return &Guard{} }

// effectiveLimits resolves guild QuotaSettings vs. the highest-priority
// matching QuotaRoleOverride, mirroring quota_validator.rs's
// EffectiveQuotaLimits precedence: a role override field, when set,
// replaces the guild default for that field; unset fields fall through.
type limits struct {
	maxActiveCount *int
	maxOverlap     *int
	maxHours7d     *int
	maxHours30d    *int
}

func effectiveLimits(tx *gorm.DB, guildID int64, roleIDs []int64) (limits, error) {
	var lim limits
	settings, err := db.GetQuotaSettingsTx(tx, guildID)
	if err != nil {
		return lim, err
	}
	if settings != nil {
		lim.maxActiveCount = settings.MaxActiveCount
		lim.maxOverlap = settings.MaxOverlapCount
		lim.maxHours7d = settings.MaxHours7d
		lim.maxHours30d = settings.MaxHours30d
	}
	overrides, err := db.ListRoleOverridesTx(tx, guildID, roleIDs)
	if err != nil {
		return lim, err
	}
	for _, o := range overrides {
		if o.MaxActiveCount != nil {
			lim.maxActiveCount = nil
		}
		if o.MaxOverlapCount != nil {
			lim.maxOverlap = nil
		}
		if o.MaxHours7d != nil {
			lim.maxHours7d = nil
		}
		if o.MaxHours30d != nil {
			lim.maxHours30d = nil
		}
	}
	for _, o := range overrides {
		if o.MaxActiveCount != nil && (lim.maxActiveCount == nil || *o.MaxActiveCount > *lim.maxActiveCount) {
			lim.maxActiveCount = o.MaxActiveCount
		}
		if o.MaxOverlapCount != nil && (lim.maxOverlap == nil || *o.MaxOverlapCount > *lim.maxOverlap) {
			lim.maxOverlap = o.MaxOverlapCount
		}
		if o.MaxHours7d != nil && (lim.maxHours7d == nil || *o.MaxHours7d > *lim.maxHours7d) {
			lim.maxHours7d = o.MaxHours7d
		}
		if o.MaxHours30d != nil && (lim.maxHours30d == nil || *o.MaxHours30d > *lim.maxHours30d) {
			lim.maxHours30d = o.MaxHours30d
		}
	}
	return lim, nil
}

// Check implements reservation.QuotaGuard. It is called from inside the
// engine's own transaction, so all reads here are consistent with the
// insert they're guarding.
func (g *Guard) Check(tx *gorm.DB, guildID, userID int64, roleIDs []int64, start, end, now time.Time) error {
	lim, err := effectiveLimits(tx, guildID, roleIDs)
	if err != nil {
		return err
	}

	if lim.maxActiveCount != nil {
		n, err := db.ActiveReservationCount(tx, userID, now)
		if err != nil {
			return err
		}
		if int(n) >= *lim.maxActiveCount {
			return errs.WithData(errs.QuotaExceeded, "active reservation limit reached",
				Exceeded{Kind: LimitActiveCount, Limit: *lim.maxActiveCount, Have: float64(n)})
		}
	}

	if lim.maxOverlap != nil {
		n, err := db.OverlappingUserReservationCount(tx, userID, start, end)
		if err != nil {
			return err
		}
		if int(n) >= *lim.maxOverlap {
			return errs.WithData(errs.QuotaExceeded, "overlapping reservation limit reached",
				Exceeded{Kind: LimitOverlap, Limit: *lim.maxOverlap, Have: float64(n)})
		}
	}

	proposedHours := end.Sub(start).Hours()

	if lim.maxHours7d != nil {
		have, err := db.ReservedHoursSince(tx, userID, now.Add(-7*24*time.Hour))
		if err != nil {
			return err
		}
		if have+proposedHours > float64(*lim.maxHours7d) {
			return errs.WithData(errs.QuotaExceeded, "7-day rolling hour limit reached",
				Exceeded{Kind: LimitRollingHours, Limit: *lim.maxHours7d, Have: have + proposedHours})
		}
	}

	if lim.maxHours30d != nil {
		have, err := db.ReservedHoursSince(tx, userID, now.Add(-30*24*time.Hour))
		if err != nil {
			return err
		}
		if have+proposedHours > float64(*lim.maxHours30d) {
			return errs.WithData(errs.QuotaExceeded, "30-day rolling hour limit reached",
				Exceeded{Kind: LimitRollingHours, Limit: *lim.maxHours30d, Have: have + proposedHours})
		}
	}

	return nil
}
