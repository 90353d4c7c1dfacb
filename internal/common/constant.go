// Package common contains shared constants and sentinel errors used across
// vaultkeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// MaxFailedAttempts is the number of consecutive failed logins after which
// the principal and everything it owns is deleted.
const MaxFailedAttempts = 10

// PINLength is the exact number of digits a vault PIN must have.
const PINLength = 4
