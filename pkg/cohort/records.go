// pkg/cohort/records.go
package cohort

import (
	"strings"

	"github.com/lib/pq"
)

// LoyaltyAccountRecord is one row of the daily change feed: this profile
// changed on this date and is due for deletion consideration.
type LoyaltyAccountRecord struct {
	ProfileID          string
	WalletID           string
	QueryExecutionDate string
}

// ProfileSnapshotRecord is one row of the profile store snapshot: this
// profile currently exists in the profile store.
type ProfileSnapshotRecord struct {
	ProfileID string
}

// QuotedIDList renders profile IDs as a comma-separated list of quoted SQL
// literals for interpolation into the snapshot query. Returns "" for an empty
// input; callers must never substitute an empty list into a query.
func QuotedIDList(ids []string) string {
	if len(ids) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		quoted = append(quoted, pq.QuoteLiteral(id))
	}

	return strings.Join(quoted, ", ")
}
