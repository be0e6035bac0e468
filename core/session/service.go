package session

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/user"
)

var (
	codeRegex = regexp.MustCompile(`^\d{6}$`)

	ErrBadCodeFormat      = core.NewFieldError("code", "code must be 6 digits")
	ErrWrongPassword      = core.NewFieldError("current_password", "current password is incorrect")
	ErrRegistrationFailed = errors.New("registration failed")
)

// ResendTooSoonError is returned when a recovery code is requested again before the resend delay elapsed.
type ResendTooSoonError struct {
	Wait time.Duration
}

func (err ResendTooSoonError) Error() string {
	return fmt.Sprintf("please wait %ds before requesting a new code", int(err.Wait.Round(time.Second).Seconds()))
}

type (
	Credentials struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	RecoveryRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	RecoveryVerification struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
	}

	// Profiles creates and reads profiles.
	Profiles interface {
		ProfileGetter
		Create(ctx context.Context, id string, na user.NewAccount) (user.Profile, error)
	}

	// ProdiChecker makes sure a program belongs to a faculty.
	ProdiChecker interface {
		CheckProdi(ctx context.Context, facultyID, prodiID string) error
	}

	Service struct {
		auth        Authenticator
		profiles    Profiles
		prodis      ProdiChecker
		resolver    *Resolver
		validate    *validator.Validate
		resendDelay time.Duration

		mu       sync.Mutex
		resendAt map[string]time.Time // {email: next allowed send}
	}
)

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

func (rr *RecoveryRequest) Validate(validate *validator.Validate) error {
	rr.Email = core.CleanString(rr.Email, true /* lower */)
	return validate.Struct(rr)
}

func (rv *RecoveryVerification) Validate(validate *validator.Validate) error {
	rv.Email = core.CleanString(rv.Email, true /* lower */)
	rv.Code = core.CleanString(rv.Code)
	if err := validate.Struct(rv); err != nil {
		return err
	}
	if !codeRegex.MatchString(rv.Code) {
		return ErrBadCodeFormat
	}
	return nil
}

func NewService(
	auth Authenticator,
	profiles Profiles,
	prodis ProdiChecker,
	resolver *Resolver,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		auth:        auth,
		profiles:    profiles,
		prodis:      prodis,
		resolver:    resolver,
		validate:    validate,
		resendDelay: conf.Auth.RecoveryResendDelay,
		resendAt:    make(map[string]time.Time),
	}
}

// SignUp registers a new identity and inserts its profile with role `user`.
func (svc *Service) SignUp(ctx context.Context, na user.NewAccount) (user.Profile, error) {
	if err := na.Validate(svc.validate); err != nil {
		return user.Profile{}, err
	}
	if err := svc.prodis.CheckProdi(ctx, na.FacultyID, na.ProdiID); err != nil {
		return user.Profile{}, err
	}

	identity, err := svc.auth.SignUp(ctx, na.Email, na.Password)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "signing up")
	}
	if identity.ID == "" {
		return user.Profile{}, ErrRegistrationFailed
	}

	p, err := svc.profiles.Create(ctx, identity.ID, na)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "creating profile")
	}
	return p, nil
}

// SignIn authenticates the user. The CurrentUser is nil when the identity has no profile.
func (svc *Service) SignIn(ctx context.Context, creds Credentials) (Tokens, *user.CurrentUser, error) {
	if err := creds.Validate(svc.validate); err != nil {
		return Tokens{}, nil, err
	}
	identity, tokens, err := svc.auth.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return Tokens{}, nil, errors.Wrap(err, "signing in")
	}
	cu, err := svc.resolver.ResolveIdentity(ctx, identity)
	if err != nil {
		return Tokens{}, nil, err
	}
	return tokens, cu, nil
}

func (svc *Service) SignOut(ctx context.Context, accessToken string) error {
	return svc.auth.SignOut(ctx, accessToken)
}

// SendRecoveryCode asks the auth collaborator to email a recovery code.
// A new code can only be requested once the resend delay has elapsed.
func (svc *Service) SendRecoveryCode(ctx context.Context, rr RecoveryRequest) error {
	if err := rr.Validate(svc.validate); err != nil {
		return err
	}

	now := core.NowFunc()
	svc.mu.Lock()
	for email, at := range svc.resendAt {
		if !now.Before(at) {
			delete(svc.resendAt, email)
		}
	}
	if at, ok := svc.resendAt[rr.Email]; ok {
		svc.mu.Unlock()
		return &ResendTooSoonError{Wait: at.Sub(now)}
	}
	next := now.Add(svc.resendDelay)
	svc.resendAt[rr.Email] = next
	svc.mu.Unlock()

	if err := svc.auth.SendRecoveryCode(ctx, rr.Email); err != nil {
		// nothing was sent: the email may retry right away
		svc.mu.Lock()
		if at, ok := svc.resendAt[rr.Email]; ok && at.Equal(next) {
			delete(svc.resendAt, rr.Email)
		}
		svc.mu.Unlock()
		return errors.Wrap(err, "sending recovery code")
	}
	return nil
}

// ResendIn returns how long to wait before a new code can be sent to email.
func (svc *Service) ResendIn(email string) time.Duration {
	email = core.CleanString(email, true /* lower */)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if at, ok := svc.resendAt[email]; ok {
		if wait := at.Sub(core.NowFunc()); wait > 0 {
			return wait
		}
	}
	return 0
}

// VerifyRecoveryCode exchanges a valid code for a session.
func (svc *Service) VerifyRecoveryCode(ctx context.Context, rv RecoveryVerification) (Tokens, error) {
	if err := rv.Validate(svc.validate); err != nil {
		return Tokens{}, err
	}
	tokens, err := svc.auth.VerifyRecoveryCode(ctx, rv.Email, rv.Code)
	if err != nil {
		return Tokens{}, errors.Wrap(err, "verifying recovery code")
	}
	return tokens, nil
}

// UpdatePassword sets a new password for the session user (after recovery).
func (svc *Service) UpdatePassword(ctx context.Context, accessToken string, np user.NewPassword) error {
	if err := np.Validate(svc.validate); err != nil {
		return err
	}
	return errors.Wrap(svc.auth.UpdatePassword(ctx, accessToken, np.Password), "updating password")
}

// ChangePassword re-checks the current password before setting the new one.
func (svc *Service) ChangePassword(ctx context.Context, cu *user.CurrentUser, cp user.ChangePassword) error {
	if cu == nil {
		return ErrNoSession
	}
	if err := cp.Validate(svc.validate); err != nil {
		return err
	}
	_, tokens, err := svc.auth.SignIn(ctx, cu.Email, cp.CurrentPassword)
	if err != nil {
		if core.IsAuthError(err) {
			return ErrWrongPassword
		}
		return errors.Wrap(err, "checking current password")
	}
	return errors.Wrap(svc.auth.UpdatePassword(ctx, tokens.AccessToken, cp.Password), "updating password")
}
