package models

// StoredFile describes one uploaded file. The bytes themselves live in blob
// storage under StorageKey; this record maps the capability keys to them.
//
// PublicKey and PrivateKey are globally unique across deleted and live rows
// alike, so a key is never reused for a new file. Deletion only flips the
// IsDeleted tombstone; rows are never physically removed.
type StoredFile struct {
	// ID is the opaque unique file identifier.
	ID string
	// Name is the client-supplied file name, used for Content-Disposition.
	Name string
	// StorageKey is the blob-storage location of the file bytes.
	StorageKey string
	// SizeMB is the file size in megabytes.
	SizeMB float64

	// PublicKey grants read access to the file.
	PublicKey string
	// PrivateKey grants delete access. Independent of PublicKey; neither is
	// derivable from the other or from ID.
	PrivateKey string

	// IsDeleted marks the record as logically gone while retaining it for
	// audit and key-uniqueness purposes.
	IsDeleted bool
}
