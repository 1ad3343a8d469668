package repository

import "context"

// UsageCounter reads per-user elite query usage for the current period.
// The counters are written by the query service; this engine only reads.
type UsageCounter interface {
	EliteQueriesUsed(ctx context.Context, userID string) (int, error)
}
