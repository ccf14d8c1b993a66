// Package quota implements the daily-reset arithmetic for the client quota
// ledger. Both the upload and the download path go through ResetIfStale so
// the day-boundary edge cases are handled in exactly one place.
package quota

import (
	"time"

	"github.com/dsmirnov/filedrop/internal/common"
)

// Clock supplies the current calendar date. Production code uses
// SystemClock; tests substitute fixed dates to exercise day boundaries.
type Clock interface {
	// Today returns the current calendar date truncated to midnight UTC.
	Today() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Today() time.Time {
	return Day(time.Now())
}

// Day truncates t to its calendar date, normalized to midnight UTC. The date
// is taken in t's own location, so a DATE value scanned in a non-UTC zone
// still maps to the calendar day it names. All ledger date comparisons
// operate on values produced by this function.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResetIfStale converts a stored balance into the effective consumed bytes
// for today. If today is strictly after lastDate the balance of the stored
// day no longer counts: the effective balance is zero and the caller must
// persist the advanced date on commit (reset=true).
func ResetIfStale(balanceMB float64, lastDate, today time.Time) (consumedBytes int64, reset bool) {
	if today.After(Day(lastDate)) {
		return 0, true
	}
	return MBToBytes(balanceMB), false
}

// MBToBytes converts a megabyte quantity from the ledger into bytes.
func MBToBytes(mb float64) int64 {
	return int64(mb * common.BytesPerMB)
}

// BytesToMB converts a byte count into the megabyte unit stored in the
// ledger.
func BytesToMB(b int64) float64 {
	return float64(b) / common.BytesPerMB
}
