package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/note"
	"github.com/trezcool/uninotes/core/user"
)

func TestAdminApi_access(t *testing.T) {
	app := setup(t)
	_, janeToken := app.createUser(t, "u-1", "Jane Roe", "jane@uni.test", user.RoleUser)

	var tests []httpTest
	for _, path := range []string{"/v1/admin", "/v1/admin/users", "/v1/admin/posts", "/v1/admin/audit"} {
		tests = append(tests,
			httpTest{
				name:     "anonymous " + path,
				method:   http.MethodGet,
				path:     path,
				wantCode: http.StatusUnauthorized,
				wantData: marchallObj(t, errMissingToken),
			},
			httpTest{
				name:     "user " + path,
				method:   http.MethodGet,
				path:     path,
				token:    janeToken,
				wantCode: http.StatusForbidden,
				wantData: marchallObj(t, errForbidden),
			},
		)
	}
	runHTTPTests(t, app, tests)
}

func TestAdminApi_changeRole(t *testing.T) {
	app := setup(t)
	jane, _ := app.createUser(t, "u-1", "Jane Roe", "jane@uni.test", user.RoleUser)
	ada, adaToken := app.createUser(t, "u-2", "Ada Admin", "ada@uni.test", user.RoleAdmin)
	root, _ := app.createUser(t, "u-3", "Root", "root@uni.test", user.RoleSuperAdmin)

	rolePath := func(id string) string { return "/v1/admin/users/" + id + "/role" }

	runHTTPTests(t, app, []httpTest{
		{
			name:     "super admin is protected",
			method:   http.MethodPut,
			path:     rolePath(root.ID),
			body:     marchallObj(t, echo.Map{"role": "user"}),
			token:    adaToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "forbidden: protected account"}),
		},
		{
			name:     "own role",
			method:   http.MethodPut,
			path:     rolePath(ada.ID),
			body:     marchallObj(t, echo.Map{"role": "user"}),
			token:    adaToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "forbidden: cannot change own role"}),
		},
		{
			name:     "super admin cannot be granted",
			method:   http.MethodPut,
			path:     rolePath(jane.ID),
			body:     marchallObj(t, echo.Map{"role": "super_admin"}),
			token:    adaToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"role": "role must be one of [user admin]"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPut,
			path:     rolePath("u-404"),
			body:     marchallObj(t, echo.Map{"role": "admin"}),
			token:    adaToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name:     "promote",
			method:   http.MethodPut,
			path:     rolePath(jane.ID),
			body:     marchallObj(t, echo.Map{"role": " Admin "}),
			token:    adaToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.RoleChange{
				UserID:   jane.ID,
				Email:    jane.Email,
				FullName: jane.FullName,
				From:     user.RoleUser,
				To:       user.RoleAdmin,
			}),
		},
		{
			name:     "same role is a no-op",
			method:   http.MethodPut,
			path:     rolePath(jane.ID),
			body:     marchallObj(t, echo.Map{"role": "admin"}),
			token:    adaToken,
			wantCode: http.StatusOK,
		},
	})

	p, err := app.profiles.GetProfile(context.Background(), jane.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, p.Role)

	entries, err := app.audit.List(context.Background(), 0)
	require.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, ada.Email, entries[0].ActingAdminEmail)
		assert.Equal(t, audit.ActionPromoteUser, entries[0].ActionType)
		assert.Equal(t, jane.ID, entries[0].TargetID)
	}

	sent := app.mailSvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, jane.Email, sent[0].To[0].Address)
		assert.Equal(t, "role_changed", sent[0].TemplateName)
	}
}

func TestAdminApi_posts(t *testing.T) {
	app := setup(t)
	jane, janeToken := app.createUser(t, "u-1", "Jane Roe", "jane@uni.test", user.RoleUser)
	ada, adaToken := app.createUser(t, "u-2", "Ada Admin", "ada@uni.test", user.RoleAdmin)

	var created note.Note
	for _, title := range []string{"Week 1", "Week 2"} {
		req, rec := newMultipartRequest(t, http.MethodPost, "/v1/notes", janeToken, noteFields(title), pdfFile())
		app.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &created)
	}

	t.Run("dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin", adaToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var data struct {
			Stats struct {
				TotalPosts  int `json:"total_posts"`
				TotalUsers  int `json:"total_users"`
				TotalAdmins int `json:"total_admins"`
			} `json:"stats"`
			Users []user.Profile `json:"users"`
		}
		unmarshal(t, rec, &data)
		assert.Equal(t, 2, data.Stats.TotalPosts)
		assert.Equal(t, 2, data.Stats.TotalUsers)
		assert.Equal(t, 1, data.Stats.TotalAdmins)
		assert.Len(t, data.Users, 2)
	})

	t.Run("posts", func(t *testing.T) {
		var posts []note.Note
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/posts", adaToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &posts)
		assert.Len(t, posts, 2)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "delete post",
			method:   http.MethodDelete,
			path:     "/v1/admin/posts/" + created.ID,
			token:    adaToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete unknown post",
			method:   http.MethodDelete,
			path:     "/v1/admin/posts/" + created.ID,
			token:    adaToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "note not found"}),
		},
		{
			name:     "bad limit",
			method:   http.MethodGet,
			path:     "/v1/admin/audit?limit=abc",
			token:    adaToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid query parameter"}),
		},
	})

	t.Run("audit log", func(t *testing.T) {
		var entries []audit.Entry
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/audit?limit=5", adaToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &entries)
		if assert.Len(t, entries, 1) {
			assert.Equal(t, ada.Email, entries[0].ActingAdminEmail)
			assert.Equal(t, audit.ActionDeletePost, entries[0].ActionType)
			assert.Equal(t, created.ID, entries[0].TargetID)
		}
	})

	sent := app.mailSvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, jane.Email, sent[0].To[0].Address)
		assert.Equal(t, "post_removed", sent[0].TemplateName)
	}
}
