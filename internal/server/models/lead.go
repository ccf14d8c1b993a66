// Package models defines server-side data models persisted in the database.
package models

import "time"

// TransferKind distinguishes the two quota directions tracked per lead.
type TransferKind string

const (
	TransferUpload   TransferKind = "upload"
	TransferDownload TransferKind = "download"
)

// Lead is the daily quota ledger entry for one client, identified only by
// IP address. It is created lazily on the client's first transfer and is
// never deleted.
//
// A balance field is meaningful only together with its paired date: once
// the current day is strictly after the stored date, the effective balance
// is zero regardless of the stored numeric value.
type Lead struct {
	// ID is the opaque unique identifier, generated at creation.
	ID string
	// IPAddress is the sole client identity, looked up by equality.
	IPAddress string

	// UploadBalance and DownloadBalance are megabytes consumed on the day
	// recorded in the paired date field.
	UploadBalance   float64
	DownloadBalance float64

	// LastUploadDate and LastDownloadDate are calendar dates (no
	// time-of-day) marking the last day the paired balance was accrued.
	LastUploadDate   time.Time
	LastDownloadDate time.Time
}

// Balance returns the stored balance for the given kind in megabytes.
func (l *Lead) Balance(kind TransferKind) float64 {
	if kind == TransferUpload {
		return l.UploadBalance
	}
	return l.DownloadBalance
}

// LastDate returns the stored accrual date for the given kind.
func (l *Lead) LastDate(kind TransferKind) time.Time {
	if kind == TransferUpload {
		return l.LastUploadDate
	}
	return l.LastDownloadDate
}

// SetBalance records a new balance and accrual date for the given kind.
func (l *Lead) SetBalance(kind TransferKind, balanceMB float64, date time.Time) {
	if kind == TransferUpload {
		l.UploadBalance = balanceMB
		l.LastUploadDate = date
		return
	}
	l.DownloadBalance = balanceMB
	l.LastDownloadDate = date
}
