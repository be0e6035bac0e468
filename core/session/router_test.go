package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
)

func TestInitialView(t *testing.T) {
	tests := []struct {
		name string
		usr  *user.CurrentUser
		want session.View
	}{
		{name: "anonymous", usr: nil, want: session.ViewLanding},
		{name: "user", usr: &user.CurrentUser{ID: "u", Role: user.RoleUser}, want: session.ViewHome},
		{name: "admin", usr: &user.CurrentUser{ID: "a", Role: user.RoleAdmin}, want: session.ViewDashboard},
		{name: "super_admin", usr: &user.CurrentUser{ID: "s", Role: user.RoleSuperAdmin}, want: session.ViewDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, session.InitialView(tt.usr))
			assert.Equal(t, tt.want == session.ViewDashboard, session.CanModerate(tt.usr))
		})
	}
}

func TestCanView(t *testing.T) {
	usr := &user.CurrentUser{ID: "u", Role: user.RoleUser}
	admin := &user.CurrentUser{ID: "a", Role: user.RoleAdmin}

	tests := []struct {
		view      session.View
		anonymous bool
		user      bool
		admin     bool
	}{
		{view: session.ViewLanding, anonymous: true, user: true, admin: true},
		{view: session.ViewHome, anonymous: false, user: true, admin: true},
		{view: session.ViewCourseDetail, anonymous: false, user: true, admin: true},
		{view: session.ViewSettings, anonymous: false, user: true, admin: true},
		{view: session.ViewUpload, anonymous: false, user: true, admin: true},
		{view: session.ViewDashboard, anonymous: false, user: false, admin: true},
		{view: "nowhere", anonymous: false, user: false, admin: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			assert.Equal(t, tt.anonymous, session.CanView(nil, tt.view))
			assert.Equal(t, tt.user, session.CanView(usr, tt.view))
			assert.Equal(t, tt.admin, session.CanView(admin, tt.view))
		})
	}
}

func TestView_ShowsCourses(t *testing.T) {
	assert.True(t, session.ViewHome.ShowsCourses())
	assert.False(t, session.ViewLanding.ShowsCourses())
	assert.False(t, session.ViewDashboard.ShowsCourses())
	assert.False(t, session.View("home ").Valid())
}
