// Package common contains shared constants and sentinel errors used across
// filedrop components.
package common

// BytesPerMB is the conversion factor between the megabyte quantities stored
// in the quota ledger and the byte quantities measured on the wire.
const BytesPerMB = 1 << 20
