// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package retention

import (
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// Decision is the verdict on one backup.
type Decision struct {
	BackupID   string            `json:"backup_id"`
	BackupType models.BackupType `json:"backup_type"`
	StartedAt  time.Time         `json:"started_at"`
	SizeBytes  int64             `json:"size_bytes"`
	Reasons    []string          `json:"reasons"`

	record *models.BackupRecord
}

// Plan is the outcome of evaluating a policy.
type Plan struct {
	EvaluatedAt time.Time  `json:"evaluated_at"`
	Keep        []Decision `json:"keep"`
	Delete      []Decision `json:"delete"`
}

// Evaluated returns the number of backups the plan covers.
func (p *Plan) Evaluated() int {
	return len(p.Keep) + len(p.Delete)
}

// DeleteIDs returns the ids of the backups to delete, oldest first.
func (p *Plan) DeleteIDs() []string {
	ids := make([]string, 0, len(p.Delete))
	for _, d := range p.Delete {
		ids = append(ids, d.BackupID)
	}
	return ids
}

// BytesToFree sums the stored size of the backups to delete.
func (p *Plan) BytesToFree() int64 {
	var total int64
	for _, d := range p.Delete {
		total += d.SizeBytes
	}
	return total
}

// ValidatePolicy rejects negative settings.
func ValidatePolicy(p models.RetentionPolicy) error {
	fields := []struct {
		name  string
		value int
	}{
		{"retention.retention_days", p.RetentionDays},
		{"retention.min_backups_to_keep", p.MinBackupsToKeep},
		{"retention.keep_daily_for_days", p.KeepDailyForDays},
		{"retention.keep_weekly_for_weeks", p.KeepWeeklyForWeeks},
		{"retention.keep_monthly_for_months", p.KeepMonthlyForMonths},
		{"retention.keep_yearly_for_years", p.KeepYearlyForYears},
		{"retention.pre_recovery_retention_days", p.PreRecoveryRetentionDays},
	}
	for _, f := range fields {
		if f.value < 0 {
			return faults.Configuration(f.name, "must not be negative")
		}
	}
	return nil
}

// periodKeyFunc groups backups into retention periods.
type periodKeyFunc func(t time.Time) string

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKey(t time.Time) string { return t.Format("2006-01") }

func yearKey(t time.Time) string { return t.Format("2006") }

// tier is one periodic retention rule.
type tier struct {
	name   string
	cutoff time.Time
	key    periodKeyFunc
	reason string
}

func tiers(policy models.RetentionPolicy, now time.Time) []tier {
	var out []tier

	weeks := policy.KeepWeeklyForWeeks
	switch {
	case weeks > 0:
		out = append(out, tier{
			name:   "weekly",
			cutoff: now.AddDate(0, 0, -7*weeks),
			key:    weekKey,
			reason: fmt.Sprintf("newest of its ISO week within %d weeks", weeks),
		})
	case policy.RetentionDays > 0:
		out = append(out, tier{
			name:   "weekly",
			cutoff: now.AddDate(0, 0, -policy.RetentionDays),
			key:    weekKey,
			reason: fmt.Sprintf("newest of its ISO week within %d days", policy.RetentionDays),
		})
	}
	if policy.KeepMonthlyForMonths > 0 {
		out = append(out, tier{
			name:   "monthly",
			cutoff: now.AddDate(0, -policy.KeepMonthlyForMonths, 0),
			key:    monthKey,
			reason: fmt.Sprintf("newest of its month within %d months", policy.KeepMonthlyForMonths),
		})
	}
	if policy.KeepYearlyForYears > 0 {
		out = append(out, tier{
			name:   "yearly",
			cutoff: now.AddDate(-policy.KeepYearlyForYears, 0, 0),
			key:    yearKey,
			reason: fmt.Sprintf("newest of its year within %d years", policy.KeepYearlyForYears),
		})
	}
	return out
}

// newestPerPeriod returns the id of the newest backup in each period.
func newestPerPeriod(backups []*models.BackupRecord, key periodKeyFunc) map[string]bool {
	newest := make(map[string]*models.BackupRecord)
	for _, b := range backups {
		k := key(b.StartedAt.UTC())
		if cur, ok := newest[k]; !ok || b.StartedAt.After(cur.StartedAt) {
			newest[k] = b
		}
	}
	ids := make(map[string]bool, len(newest))
	for _, b := range newest {
		ids[b.ID] = true
	}
	return ids
}

// evaluate builds the plan for backups. Records that are not completed or
// already deleted are ignored.
func evaluate(backups []*models.BackupRecord, policy models.RetentionPolicy, now time.Time) *Plan {
	plan := &Plan{EvaluatedAt: now}

	var regular, safety []*models.BackupRecord
	for _, b := range backups {
		if b.Status != models.BackupStatusCompleted || b.DeletedAt != nil {
			continue
		}
		if b.BackupType == models.BackupTypePreRecovery {
			safety = append(safety, b)
		} else {
			regular = append(regular, b)
		}
	}

	for _, b := range safety {
		if reason, expired := preRecoveryExpired(b, policy, now); expired {
			plan.Delete = append(plan.Delete, decision(b, reason))
		} else {
			plan.Keep = append(plan.Keep, decision(b, reason))
		}
	}

	activeTiers := tiers(policy, now)
	newest := make([]map[string]bool, len(activeTiers))
	for i, t := range activeTiers {
		newest[i] = newestPerPeriod(regular, t.key)
	}
	daily := time.Duration(policy.KeepDailyForDays) * 24 * time.Hour
	floor := retentionFloor(policy)

	var candidates []Decision
	for _, b := range regular {
		var reasons []string
		age := now.Sub(b.StartedAt)
		if policy.KeepDailyForDays > 0 && age <= daily {
			reasons = append(reasons, fmt.Sprintf("at most %d days old", policy.KeepDailyForDays))
		}
		if floor > 0 && age <= floor {
			reasons = append(reasons, fmt.Sprintf("within the %d day retention period", policy.RetentionDays))
		}
		for i, t := range activeTiers {
			if newest[i][b.ID] && !b.StartedAt.Before(t.cutoff) {
				reasons = append(reasons, t.reason)
			}
		}

		if len(reasons) > 0 {
			plan.Keep = append(plan.Keep, decision(b, reasons...))
			continue
		}
		candidates = append(candidates, decision(b, "no retention tier matched"))
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].StartedAt.Before(candidates[j].StartedAt) })

	remaining := len(regular) - len(candidates)
	if short := policy.MinBackupsToKeep - remaining; short > 0 {
		if short > len(candidates) {
			short = len(candidates)
		}
		for _, d := range candidates[:short] {
			d.Reasons = []string{fmt.Sprintf("kept to hold %d backups", policy.MinBackupsToKeep)}
			plan.Keep = append(plan.Keep, d)
		}
		candidates = candidates[short:]
	}
	plan.Delete = append(plan.Delete, candidates...)

	sort.SliceStable(plan.Keep, func(i, j int) bool { return plan.Keep[i].StartedAt.After(plan.Keep[j].StartedAt) })
	sort.SliceStable(plan.Delete, func(i, j int) bool { return plan.Delete[i].StartedAt.Before(plan.Delete[j].StartedAt) })
	return plan
}

// retentionFloor is the age below which no regular backup is deleted. When
// no weekly tier is configured RetentionDays is the weekly window instead,
// and backups inside it are thinned to one per ISO week.
func retentionFloor(policy models.RetentionPolicy) time.Duration {
	if policy.KeepWeeklyForWeeks == 0 {
		return 0
	}
	return time.Duration(policy.RetentionDays) * 24 * time.Hour
}

func preRecoveryExpired(b *models.BackupRecord, policy models.RetentionPolicy, now time.Time) (string, bool) {
	if b.ExpiresAt != nil {
		if !now.Before(*b.ExpiresAt) {
			return fmt.Sprintf("pre-recovery backup expired at %s", b.ExpiresAt.UTC().Format(time.RFC3339)), true
		}
		return "pre-recovery backup not yet expired", false
	}
	limit := time.Duration(policy.PreRecoveryRetentionDays) * 24 * time.Hour
	if now.Sub(b.StartedAt) >= limit {
		return fmt.Sprintf("pre-recovery backup older than %d days", policy.PreRecoveryRetentionDays), true
	}
	return "pre-recovery backup not yet expired", false
}

func decision(b *models.BackupRecord, reasons ...string) Decision {
	return Decision{
		BackupID:   b.ID,
		BackupType: b.BackupType,
		StartedAt:  b.StartedAt,
		SizeBytes:  b.CompressedSizeBytes,
		Reasons:    reasons,
		record:     b,
	}
}
