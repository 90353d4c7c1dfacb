package grpc

import "time"

// Request and response messages of vaultkeeper.VaultService.

type Empty struct{}

type PingResponse struct {
	Status string `cbor:"status"`
}

type RegisterRequest struct {
	UserName         string `cbor:"username"`
	Email            string `cbor:"email"`
	Password         string `cbor:"password"`
	SecurityQuestion string `cbor:"security_question"`
	SecurityAnswer   string `cbor:"security_answer"`
	PIN              string `cbor:"pin"`
}

type RegisterResponse struct {
	UserID string `cbor:"user_id"`
}

// LoginRequest carries the password and, in the same call or a second
// one, the security answer or PIN.
type LoginRequest struct {
	Email       string `cbor:"email"`
	Password    string `cbor:"password"`
	AnswerOrPIN string `cbor:"answer_or_pin,omitempty"`
}

type TokenResponse struct {
	AccessToken  string `cbor:"access_token"`
	RefreshToken string `cbor:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `cbor:"refresh_token"`
}

type IDRequest struct {
	ID string `cbor:"id"`
}

// SecretInput is shared by create and update. Omitted fields are left
// unchanged on update.
type SecretInput struct {
	ID          string  `cbor:"id,omitempty"`
	Email       *string `cbor:"email,omitempty"`
	Password    *string `cbor:"password,omitempty"`
	Secret      *string `cbor:"secret,omitempty"`
	SiteURL     *string `cbor:"site_url,omitempty"`
	SiteName    *string `cbor:"site_name,omitempty"`
	SiteIconURL *string `cbor:"site_icon_url,omitempty"`
}

// Field statuses of a decrypted value.
const (
	FieldEmpty         = "empty"
	FieldOK            = "ok"
	FieldUndecryptable = "undecryptable"
)

type Secret struct {
	ID             string    `cbor:"id"`
	Email          string    `cbor:"email"`
	Password       string    `cbor:"password"`
	PasswordStatus string    `cbor:"password_status"`
	Secret         string    `cbor:"secret,omitempty"`
	SecretStatus   string    `cbor:"secret_status"`
	SiteURL        string    `cbor:"site_url,omitempty"`
	SiteName       string    `cbor:"site_name,omitempty"`
	SiteIconURL    string    `cbor:"site_icon_url,omitempty"`
	CreatedAt      time.Time `cbor:"created_at"`
	UpdatedAt      time.Time `cbor:"updated_at"`
	Frozen         bool      `cbor:"frozen"`
}

type ListSecretsResponse struct {
	Secrets []Secret `cbor:"secrets"`
}

type UploadFileRequest struct {
	Name    string `cbor:"name"`
	Content []byte `cbor:"content"`
}

type File struct {
	ID        string    `cbor:"id"`
	Name      string    `cbor:"name"`
	SizeBytes int64     `cbor:"size_bytes"`
	CreatedAt time.Time `cbor:"created_at"`
}

type DownloadFileResponse struct {
	Name    string `cbor:"name"`
	Content []byte `cbor:"content"`
}

type ListFilesResponse struct {
	Files []File `cbor:"files"`
}

type ProfileSummary struct {
	PlanName       string  `cbor:"plan_name"`
	SlotsUsed      int     `cbor:"slots_used"`
	SlotsTotal     int     `cbor:"slots_total"`
	StorageUsedMB  float64 `cbor:"storage_used_mb"`
	StorageTotalGB int64   `cbor:"storage_total_gb"`
	StoragePercent float64 `cbor:"storage_percent"`
	NotesTotal     int     `cbor:"notes_total"`
	RemindersTotal int     `cbor:"reminders_total"`
	AdFree         bool    `cbor:"ad_free"`
	TotalAdViews   int     `cbor:"total_ad_views"`
}

type AdViewResponse struct {
	TotalAdViews int `cbor:"total_ad_views"`
	AdViewsToday int `cbor:"ad_views_today"`
}
