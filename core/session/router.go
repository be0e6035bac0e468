package session

import "github.com/trezcool/uninotes/core/user"

// View is a client view.
type View string

const (
	ViewLanding      View = "landing"
	ViewHome         View = "home"
	ViewDashboard    View = "dashboard"
	ViewCourseDetail View = "course-detail"
	ViewSettings     View = "settings"
	ViewUpload       View = "upload"
)

func (v View) Valid() bool {
	switch v {
	case ViewLanding, ViewHome, ViewDashboard, ViewCourseDetail, ViewSettings, ViewUpload:
		return true
	}
	return false
}

// ShowsCourses is true for views displaying course results.
func (v View) ShowsCourses() bool {
	return v == ViewHome
}

// InitialView routes a user: anonymous to landing, moderators to the dashboard, others home.
func InitialView(u *user.CurrentUser) View {
	switch {
	case u == nil:
		return ViewLanding
	case u.CanModerate():
		return ViewDashboard
	default:
		return ViewHome
	}
}

// CanModerate is true iff u is an admin or a super_admin.
func CanModerate(u *user.CurrentUser) bool {
	return u.CanModerate()
}

// CanView tells whether u may navigate to v.
func CanView(u *user.CurrentUser, v View) bool {
	switch v {
	case ViewLanding:
		return true
	case ViewDashboard:
		return u.CanModerate()
	case ViewHome, ViewCourseDetail, ViewSettings, ViewUpload:
		return u != nil
	}
	return false
}
