// Package queries holds the raw SQL text used by the pipeline. The statements
// are inputs to the warehouse client, not pipeline logic, so they live as
// embedded files the way the original deployment shipped them.
package queries

import (
	_ "embed"
	"fmt"
	"time"
)

//go:embed sql/daily_change_feed.sql
var dailyChangeFeed string

//go:embed sql/profile_store_snapshot.sql
var profileStoreSnapshot string

//go:embed sql/pending_deletions_by_date.sql
var pendingDeletionsByDate string

//go:embed sql/pending_counts_by_date.sql
var pendingCountsByDate string

// DailyChangeFeed returns the change-feed query for the given table prefix.
func DailyChangeFeed(prefix string) string {
	return fmt.Sprintf(dailyChangeFeed, prefix)
}

// ProfileStoreSnapshot returns the profile store snapshot query. idList must
// be a non-empty, comma-separated list of quoted profile ID literals; callers
// are responsible for never passing an empty list.
func ProfileStoreSnapshot(dataset, idList string) string {
	return fmt.Sprintf(profileStoreSnapshot, dataset, idList)
}

// PendingDeletionsByDate returns the pending-deletions query for one GDPR date.
func PendingDeletionsByDate(prefix string, date time.Time) string {
	return fmt.Sprintf(pendingDeletionsByDate, prefix, date.Format("2006-01-02"))
}

// PendingCountsByDate returns the per-date pending deletion counts query.
func PendingCountsByDate(prefix string) string {
	return fmt.Sprintf(pendingCountsByDate, prefix)
}
