// Package services contains server-side business logic. This file implements
// UserService, which handles registration, the password plus security
// challenge login with its destructive lockout, and issuing/refreshing JWTs
// plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/dbx"
	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/auth"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/config"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
)

const minPasswordLength = 8

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthError is returned for a failed login. Remaining is the number of
// attempts left before the account is destroyed, or 0 when not known.
type AuthError struct {
	Remaining int
}

func (e *AuthError) Error() string {
	if e.Remaining > 0 {
		return fmt.Sprintf("invalid credentials, %d attempts remaining", e.Remaining)
	}
	return "invalid credentials"
}

func (e *AuthError) Unwrap() error { return common.ErrorUnauthorized }

// ChallengeRequired is returned when the password was correct but no
// security answer or PIN was submitted. It carries the question to ask.
type ChallengeRequired struct {
	Question string
}

func (e *ChallengeRequired) Error() string {
	return "security challenge required: " + e.Question
}

// Notifier delivers account notifications.
type Notifier interface {
	SendWelcome(ctx context.Context, user *models.User) error
}

// RegisterRequest carries everything needed to open an account.
type RegisterRequest struct {
	UserName         string
	Email            string
	Password         string
	SecurityQuestion string
	SecurityAnswer   string
	PIN              string
}

// Validate checks the request and returns a wrapped common.ErrValidation
// describing the first problem found.
func (r RegisterRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.UserName) == "":
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	case !validEmail(r.Email):
		return fmt.Errorf("%w: a valid email is required", common.ErrValidation)
	case len(r.Password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLength)
	case strings.TrimSpace(r.SecurityQuestion) == "":
		return fmt.Errorf("%w: security question is required", common.ErrValidation)
	case cryptox.NormalizeAnswer(r.SecurityAnswer) == "":
		return fmt.Errorf("%w: security answer is required", common.ErrValidation)
	case !isPIN(r.PIN):
		return fmt.Errorf("%w: PIN must be exactly %d digits", common.ErrValidation, common.PINLength)
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isPIN(s string) bool {
	return len(s) == common.PINLength && common.IsAllDigits(s)
}

// UserService provides authentication-related operations:
// - Register: create users together with their profile
// - Login: verify password and security challenge, count failures, mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	hasher                       cryptox.Hasher
	blobs                        blobstore.Store
	notifier                     Notifier
	log                          logging.Logger

	dummyOnce sync.Once
	dummy     string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	blobs blobstore.Store, notifier Notifier, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		blobs:                        blobs,
		notifier:                     notifier,
		log:                          log,
	}
}

// WithHasher overrides the argon2id parameters. Tests use it to keep
// hashing cheap.
func (s *UserService) WithHasher(h cryptox.Hasher) *UserService {
	s.hasher = h
	return s
}

// Register creates a new user and its profile in one transaction. The
// welcome notification is sent in the background and never fails the call.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	answerHash, err := s.hasher.Hash(cryptox.NormalizeAnswer(req.SecurityAnswer))
	if err != nil {
		return nil, fmt.Errorf("error hashing security answer: %w", err)
	}
	pinHash, err := s.hasher.Hash(req.PIN)
	if err != nil {
		return nil, fmt.Errorf("error hashing PIN: %w", err)
	}

	user := &models.User{
		UserName:     strings.TrimSpace(req.UserName),
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
		IsActive:     true,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		user = created
		return s.repomanager.Profiles(tx).Create(ctx, &models.Profile{
			UserID:             user.ID,
			SecurityQuestion:   strings.ToLower(strings.TrimSpace(req.SecurityQuestion)),
			SecurityAnswerHash: answerHash,
			PINHash:            pinHash,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	go s.sendWelcome(context.WithoutCancel(ctx), user)

	return user, nil
}

func (s *UserService) sendWelcome(ctx context.Context, user *models.User) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.notifier.SendWelcome(ctx, user); err != nil {
		s.log.Warn(ctx, "welcome notification failed", "user_id", user.ID, "error", err)
	}
}

// Login authenticates email and password plus the security answer or PIN.
//
// An empty answerOrPIN with a correct password yields *ChallengeRequired.
// Every wrong password or wrong answer is counted; reaching
// common.MaxFailedAttempts deletes the account and everything it owns and
// yields common.ErrAccountDestroyed. Other failures yield *AuthError.
func (s *UserService) Login(ctx context.Context, email, password, answerOrPIN string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep timing close to the known-user path
			_, _ = s.hasher.Verify(password, s.dummyHash())
			return nil, &AuthError{}
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	profiles := s.repomanager.Profiles(s.db)
	if err := profiles.EnsureExists(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	profile, err := profiles.Get(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !s.verify(ctx, password, user.PasswordHash) {
		return nil, s.recordFailure(ctx, user.ID)
	}

	if answerOrPIN == "" && hasChallenge(profile) {
		return nil, &ChallengeRequired{Question: profile.SecurityQuestion}
	}

	if !s.checkChallenge(ctx, profile, answerOrPIN) {
		return nil, s.recordFailure(ctx, user.ID)
	}

	if !user.IsActive {
		return nil, common.ErrAccountDisabled
	}

	if profile.FailedAttempts != 0 {
		if err := profiles.ResetFailedAttempts(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
	}

	return s.generateTokenPair(ctx, user.ID, s.db)
}

// dummyHash is verified against when the email is unknown.
func (s *UserService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
	})
	return s.dummy
}

func hasChallenge(p *models.Profile) bool {
	return p.SecurityAnswerHash != "" || p.PINHash != ""
}

// checkChallenge accepts the normalised security answer or, for a
// 4-digit input, the PIN. Profiles without any challenge configured
// (backfilled rows) pass.
func (s *UserService) checkChallenge(ctx context.Context, p *models.Profile, input string) bool {
	if !hasChallenge(p) {
		return true
	}
	if s.verify(ctx, cryptox.NormalizeAnswer(input), p.SecurityAnswerHash) {
		return true
	}
	return isPIN(input) && s.verify(ctx, input, p.PINHash)
}

func (s *UserService) verify(ctx context.Context, secret, encoded string) bool {
	ok, err := s.hasher.Verify(secret, encoded)
	if err != nil {
		s.log.Error(ctx, "stored hash is unreadable", "error", err)
		return false
	}
	return ok
}

// recordFailure bumps the failed-attempt counter and, once it reaches the
// threshold, deletes the principal in the same transaction. Blobs of a
// deleted principal are removed after the commit.
func (s *UserService) recordFailure(ctx context.Context, userID string) error {
	var (
		remaining int
		destroyed bool
		after     dbx.AfterCommit
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Profiles(tx).IncrementFailedAttempts(ctx, userID)
		if err != nil {
			return fmt.Errorf("error recording failed attempt: %w", err)
		}
		if n < common.MaxFailedAttempts {
			remaining = common.MaxFailedAttempts - n
			return nil
		}

		keys, err := s.repomanager.Files(tx).StorageKeys(ctx, userID)
		if err != nil {
			return fmt.Errorf("error listing files: %w", err)
		}
		if err := s.repomanager.Users(tx).Delete(ctx, userID); err != nil {
			return fmt.Errorf("error deleting user: %w", err)
		}
		destroyed = true
		after.Add(func() { s.removeBlobs(context.WithoutCancel(ctx), userID, keys) })
		return nil
	})
	if err != nil {
		return err
	}

	after.Run()
	if destroyed {
		s.log.Warn(ctx, "account destroyed after too many failed attempts", "user_id", userID)
		return common.ErrAccountDestroyed
	}
	return &AuthError{Remaining: remaining}
}

func (s *UserService) removeBlobs(ctx context.Context, userID string, keys []string) {
	for _, k := range keys {
		if err := s.blobs.Delete(ctx, k); err != nil {
			s.log.Warn(ctx, "orphaned blob left behind", "user_id", userID, "key", k, "error", err)
		}
	}
}

// RefreshToken redeems a refresh token and returns a fresh TokenPair. The
// old token is consumed in the same transaction that stores the new one.
// Unknown tokens yield ErrorUnauthorized, expired ones ErrRefreshTokenExpired.
// A disabled account gets ErrAccountDisabled; the transaction rolls back.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		if token.Expires.Before(time.Now()) {
			return common.ErrRefreshTokenExpired
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}
		if !user.IsActive {
			return common.ErrAccountDisabled
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// SetActive enables or disables the account registered under email.
func (s *UserService) SetActive(ctx context.Context, email string, active bool) error {
	return s.repomanager.Users(s.db).SetActive(ctx, normalizeEmail(email), active)
}

// --- helpers below ---

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
