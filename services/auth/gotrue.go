package authsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/session"
)

// GoTrue talks to a hosted GoTrue auth server over its REST API.
type GoTrue struct {
	baseURL string
	anonKey string
	send    func(ctx context.Context, req rest.Request) (*rest.Response, error)
}

var _ session.Authenticator = (*GoTrue)(nil)

type (
	gotrueUser struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	gotrueSession struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		ExpiresIn    int64       `json:"expires_in"`
		ExpiresAt    int64       `json:"expires_at"`
		User         *gotrueUser `json:"user"`
	}

	// signup answers a user, or a session when email confirmation is disabled
	gotrueSignUp struct {
		gotrueUser
		User *gotrueUser `json:"user"`
	}

	gotrueError struct {
		Code        interface{} `json:"code"`
		ErrorCode   string      `json:"error_code"`
		Err         string      `json:"error"`
		Description string      `json:"error_description"`
		Msg         string      `json:"msg"`
	}
)

func (e gotrueError) message() string {
	for _, m := range []string{e.Msg, e.Description, e.Err} {
		if m != "" {
			return m
		}
	}
	return ""
}

func NewGoTrue(conf *core.Config) (*GoTrue, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.Auth.URL, "auth.url"),
		vala.StringNotEmpty(conf.Auth.AnonKey, "auth.anonKey"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "checking auth config")
	}
	return &GoTrue{
		baseURL: strings.TrimSuffix(conf.Auth.URL, "/") + "/auth/v1",
		anonKey: conf.Auth.AnonKey,
		send:    sendWithContext,
	}, nil
}

// sendWithContext is rest.Send bound to ctx.
func sendWithContext(ctx context.Context, req rest.Request) (*rest.Response, error) {
	r, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := rest.MakeRequest(r.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(res)
}

func (g *GoTrue) request(method rest.Method, path, token string, query map[string]string, body interface{}) (rest.Request, error) {
	if token == "" {
		token = g.anonKey
	}
	req := rest.Request{
		Method:  method,
		BaseURL: g.baseURL + path,
		Headers: map[string]string{
			"apikey":        g.anonKey,
			"Authorization": "Bearer " + token,
			"Content-Type":  "application/json",
			"Accept":        "application/json",
		},
		QueryParams: query,
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return rest.Request{}, errors.Wrap(err, "encoding request body")
		}
		req.Body = b
	}
	return req, nil
}

// do sends the request. Error statuses are mapped by reject, or reported as is.
func (g *GoTrue) do(
	ctx context.Context,
	method rest.Method,
	path, token string,
	query map[string]string,
	body, dest interface{},
	reject func(status int, e gotrueError) error,
) error {
	req, err := g.request(method, path, token, query, body)
	if err != nil {
		return err
	}
	res, err := g.send(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	if res.StatusCode >= http.StatusBadRequest {
		var e gotrueError
		_ = json.Unmarshal([]byte(res.Body), &e)
		if reject != nil {
			if err = reject(res.StatusCode, e); err != nil {
				return err
			}
		}
		return errors.Errorf("%s %s: status %d: %s", method, path, res.StatusCode, e.message())
	}
	if dest != nil && res.Body != "" {
		if err = json.Unmarshal([]byte(res.Body), dest); err != nil {
			return errors.Wrapf(err, "decoding %s %s", method, path)
		}
	}
	return nil
}

func (s gotrueSession) tokens() session.Tokens {
	t := session.Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	switch {
	case s.ExpiresAt > 0:
		t.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	case s.ExpiresIn > 0:
		t.ExpiresAt = core.NowFunc().Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return t
}

func (g *GoTrue) SignUp(ctx context.Context, email, password string) (session.Identity, error) {
	var res gotrueSignUp
	err := g.do(ctx, rest.Post, "/signup", "", nil,
		map[string]string{"email": email, "password": password}, &res,
		func(status int, e gotrueError) error {
			if status == http.StatusUnprocessableEntity || strings.Contains(strings.ToLower(e.message()), "already registered") {
				return session.ErrEmailTaken
			}
			if status == http.StatusBadRequest {
				return core.NewFieldError("password", e.message())
			}
			return nil
		},
	)
	if err != nil {
		return session.Identity{}, err
	}
	u := res.gotrueUser
	if res.User != nil {
		u = *res.User
	}
	return session.Identity{ID: u.ID, Email: u.Email}, nil
}

func (g *GoTrue) SignIn(ctx context.Context, email, password string) (session.Identity, session.Tokens, error) {
	var res gotrueSession
	err := g.do(ctx, rest.Post, "/token", "", map[string]string{"grant_type": "password"},
		map[string]string{"email": email, "password": password}, &res,
		func(status int, _ gotrueError) error {
			if status == http.StatusBadRequest || status == http.StatusUnauthorized {
				return session.ErrInvalidCredentials
			}
			return nil
		},
	)
	if err != nil {
		return session.Identity{}, session.Tokens{}, err
	}
	if res.User == nil {
		return session.Identity{}, session.Tokens{}, errors.New("sign in answered without user")
	}
	return session.Identity{ID: res.User.ID, Email: res.User.Email}, res.tokens(), nil
}

func rejectSession(status int, _ gotrueError) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return session.ErrNoSession
	}
	return nil
}

func (g *GoTrue) SignOut(ctx context.Context, accessToken string) error {
	return g.do(ctx, rest.Post, "/logout", accessToken, nil, nil, nil, rejectSession)
}

func (g *GoTrue) GetUser(ctx context.Context, accessToken string) (session.Identity, error) {
	var u gotrueUser
	if err := g.do(ctx, rest.Get, "/user", accessToken, nil, nil, &u, rejectSession); err != nil {
		return session.Identity{}, err
	}
	return session.Identity{ID: u.ID, Email: u.Email}, nil
}

func (g *GoTrue) SendRecoveryCode(ctx context.Context, email string) error {
	return g.do(ctx, rest.Post, "/recover", "", nil, map[string]string{"email": email}, nil,
		func(status int, e gotrueError) error {
			if status == http.StatusTooManyRequests {
				return &session.ResendTooSoonError{Wait: time.Minute}
			}
			return nil
		},
	)
}

func (g *GoTrue) VerifyRecoveryCode(ctx context.Context, email, code string) (session.Tokens, error) {
	var res gotrueSession
	err := g.do(ctx, rest.Post, "/verify", "", nil,
		map[string]string{"type": "recovery", "email": email, "token": code}, &res,
		func(status int, _ gotrueError) error {
			if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
				return session.ErrInvalidCode
			}
			return nil
		},
	)
	if err != nil {
		return session.Tokens{}, err
	}
	return res.tokens(), nil
}

func (g *GoTrue) UpdatePassword(ctx context.Context, accessToken, password string) error {
	return g.do(ctx, rest.Put, "/user", accessToken, nil, map[string]string{"password": password}, nil,
		func(status int, e gotrueError) error {
			if status == http.StatusUnauthorized || status == http.StatusForbidden {
				return session.ErrNoSession
			}
			if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
				return core.NewFieldError("password", e.message())
			}
			return nil
		},
	)
}

func (g *GoTrue) String() string {
	return fmt.Sprintf("gotrue(%s)", g.baseURL)
}
