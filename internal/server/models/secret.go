package models

import "time"

// Secret is a stored credential. PasswordEncrypted and SecretEncrypted hold
// ciphertext tokens, never plaintext.
type Secret struct {
	ID                string
	UserID            string
	Email             string
	PasswordEncrypted string
	SecretEncrypted   string
	SiteURL           string
	SiteName          string
	SiteIconURL       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// File describes server-side metadata for an uploaded file. The encrypted
// content itself is stored in object storage under StorageKey.
type File struct {
	ID         string
	UserID     string
	StorageKey string
	Name       string
	// SizeBytes is the plaintext size, which is what quotas are charged on.
	SizeBytes int64
	CreatedAt time.Time
}

type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}
