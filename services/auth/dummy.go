package authsvc

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/session"
)

// RecoveryCodeTTL is how long a recovery code can be used.
const RecoveryCodeTTL = 10 * time.Minute

func uuidString() string {
	return uuid.New().String()
}

type (
	dummyUser struct {
		id           string
		email        string
		passwordHash []byte
	}

	recoveryCode struct {
		code      string
		expiresAt time.Time
	}

	// Dummy is an in-process Authenticator issuing HS256 tokens. Used in DEV and tests.
	Dummy struct {
		secret  string
		conf    *core.Config
		mailSvc core.EmailService

		mu      sync.RWMutex
		users   map[string]*dummyUser // {email: user}
		revoked map[string]time.Time  // {token id: expiry}
		codes   map[string]recoveryCode
	}
)

var _ session.Authenticator = (*Dummy)(nil)

func NewDummy(mailSvc core.EmailService, conf *core.Config) *Dummy {
	return &Dummy{
		secret:  conf.Auth.JWTSecret,
		conf:    conf,
		mailSvc: mailSvc,
		users:   make(map[string]*dummyUser),
		revoked: make(map[string]time.Time),
		codes:   make(map[string]recoveryCode),
	}
}

// AddUser registers an identity with a known id. Useful to seed data.
func (a *Dummy) AddUser(id, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	email = core.CleanString(email, true /* lower */)
	if _, ok := a.users[email]; ok {
		return session.ErrEmailTaken
	}
	a.users[email] = &dummyUser{id: id, email: email, passwordHash: hash}
	return nil
}

func (a *Dummy) SignUp(_ context.Context, email, password string) (session.Identity, error) {
	id := uuidString()
	if err := a.AddUser(id, email, password); err != nil {
		return session.Identity{}, err
	}
	return session.Identity{ID: id, Email: core.CleanString(email, true /* lower */)}, nil
}

func (a *Dummy) issue(identity session.Identity) (session.Tokens, error) {
	claims := NewClaims(identity, a.conf)
	token, err := GenerateToken(claims, a.secret)
	if err != nil {
		return session.Tokens{}, err
	}
	return session.Tokens{
		AccessToken:  token,
		RefreshToken: uuidString(),
		ExpiresAt:    time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

func (a *Dummy) SignIn(_ context.Context, email, password string) (session.Identity, session.Tokens, error) {
	a.mu.RLock()
	u, ok := a.users[core.CleanString(email, true /* lower */)]
	a.mu.RUnlock()
	if !ok {
		return session.Identity{}, session.Tokens{}, session.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return session.Identity{}, session.Tokens{}, session.ErrInvalidCredentials
	}
	identity := session.Identity{ID: u.id, Email: u.email}
	tokens, err := a.issue(identity)
	return identity, tokens, err
}

func (a *Dummy) SignOut(_ context.Context, accessToken string) error {
	claims, err := ParseToken(accessToken, a.secret)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	now := core.NowFunc()
	for id, exp := range a.revoked {
		if now.After(exp) {
			delete(a.revoked, id)
		}
	}
	a.revoked[claims.Id] = time.Unix(claims.ExpiresAt, 0)
	return nil
}

func (a *Dummy) GetUser(_ context.Context, accessToken string) (session.Identity, error) {
	claims, err := ParseToken(accessToken, a.secret)
	if err != nil {
		return session.Identity{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.revoked[claims.Id]; ok {
		return session.Identity{}, session.ErrNoSession
	}
	if _, ok := a.users[claims.Email]; !ok {
		return session.Identity{}, session.ErrNoSession
	}
	return claims.Identity(), nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", errors.Wrap(err, "generating code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SendRecoveryCode emails a code to known users. Unknown emails are silently ignored.
func (a *Dummy) SendRecoveryCode(_ context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	a.mu.RLock()
	_, ok := a.users[email]
	a.mu.RUnlock()
	if !ok {
		return nil
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.codes[email] = recoveryCode{code: code, expiresAt: core.NowFunc().Add(RecoveryCodeTTL)}
	a.mu.Unlock()

	if a.mailSvc != nil {
		a.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Address: email}},
			Subject:      "Your recovery code",
			TemplateName: "recovery_code",
			TemplateData: map[string]interface{}{
				"Name":     email,
				"Code":     code,
				"ValidFor": RecoveryCodeTTL.String(),
			},
		})
	}
	return nil
}

// RecoveryCode returns the pending code of email.
func (a *Dummy) RecoveryCode(email string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rc, ok := a.codes[core.CleanString(email, true /* lower */)]
	return rc.code, ok
}

// VerifyRecoveryCode consumes the code and signs the user in.
func (a *Dummy) VerifyRecoveryCode(_ context.Context, email, code string) (session.Tokens, error) {
	email = core.CleanString(email, true /* lower */)
	a.mu.Lock()
	rc, ok := a.codes[email]
	if !ok || rc.code != code || core.NowFunc().After(rc.expiresAt) {
		a.mu.Unlock()
		return session.Tokens{}, session.ErrInvalidCode
	}
	delete(a.codes, email)
	u := a.users[email]
	a.mu.Unlock()

	if u == nil {
		return session.Tokens{}, session.ErrInvalidCode
	}
	return a.issue(session.Identity{ID: u.id, Email: u.email})
}

func (a *Dummy) UpdatePassword(ctx context.Context, accessToken, password string) error {
	identity, err := a.GetUser(ctx, accessToken)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[identity.Email]
	if !ok {
		return session.ErrNoSession
	}
	u.passwordHash = hash
	return nil
}
