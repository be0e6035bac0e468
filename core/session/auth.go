package session

import (
	"context"
	"time"

	"github.com/trezcool/uninotes/core"
)

var (
	// errors returned by Authenticator implementations
	ErrInvalidCredentials = core.NewAuthError("invalid credentials")
	ErrNoSession          = core.NewAuthError("no active session")
	ErrInvalidCode        = core.NewAuthError("invalid or expired code")
	ErrEmailTaken         = core.NewFieldError("email", "a user with this email already exists")
)

type (
	// Identity is what the auth collaborator knows about a user.
	Identity struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	Tokens struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token,omitempty"`
		ExpiresAt    time.Time `json:"expires_at"`
	}

	// Authenticator is the external auth collaborator.
	// Rejections (bad credentials, unknown or expired token, bad code) must be *core.AuthError.
	Authenticator interface {
		SignUp(ctx context.Context, email, password string) (Identity, error)
		SignIn(ctx context.Context, email, password string) (Identity, Tokens, error)
		SignOut(ctx context.Context, accessToken string) error
		// GetUser tells who is authenticated with the token.
		GetUser(ctx context.Context, accessToken string) (Identity, error)
		// SendRecoveryCode emails a 6-digit one-time code.
		SendRecoveryCode(ctx context.Context, email string) error
		VerifyRecoveryCode(ctx context.Context, email, code string) (Tokens, error)
		UpdatePassword(ctx context.Context, accessToken, password string) error
	}
)
