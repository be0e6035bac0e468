// Package browse holds the state of one client: who is signed in, which view is shown,
// the course filters with their results, and the active notification.
package browse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/dispatch"
	"github.com/trezcool/uninotes/core/session"
	"github.com/trezcool/uninotes/core/user"
)

// DefaultNotificationTTL is how long a notification stays before it is dismissed.
const DefaultNotificationTTL = 4000 * time.Millisecond

var (
	ErrViewNotAllowed = core.NewForbiddenError("view not allowed")
	ErrUnknownProdi   = core.NewFieldError("prodi_id", "program does not belong to the selected faculty")
)

type (
	TokenResolver interface {
		Resolve(ctx context.Context, accessToken string) (*user.CurrentUser, error)
	}

	Catalog interface {
		Faculties(ctx context.Context) ([]academic.Faculty, error)
		Prodis(ctx context.Context, facultyID string) ([]academic.Prodi, error)
		Semesters(ctx context.Context) ([]academic.Semester, error)
		Courses(ctx context.Context, f academic.FilterState) ([]academic.Course, error)
	}

	Deps struct {
		Resolver        TokenResolver
		Catalog         Catalog
		Logger          core.Logger
		QuietPeriod     time.Duration
		NotificationTTL time.Duration
		AfterFunc       dispatch.AfterFunc // defaults to time.AfterFunc
		OnChange        func(State)
	}

	Notification struct {
		ID      uint64 `json:"id"`
		Kind    string `json:"kind"` // success | info | error
		Message string `json:"message"`
	}

	// State is a snapshot of a Session.
	State struct {
		User         *user.CurrentUser    `json:"user"`
		View         session.View         `json:"view"`
		CanModerate  bool                 `json:"can_moderate"`
		Filter       academic.FilterState `json:"filter"`
		Faculties    []academic.Faculty   `json:"faculties"`
		Prodis       []academic.Prodi     `json:"prodis"`
		Semesters    []academic.Semester  `json:"semesters"`
		Courses      []academic.Course    `json:"courses"`
		Loading      bool                 `json:"loading"`
		Notification *Notification        `json:"notification"`
	}

	Session struct {
		deps       Deps
		dispatcher *dispatch.Dispatcher

		mu         sync.Mutex
		state      State
		notifSeq   uint64
		notifTimer dispatch.Timer
		prodiSeq   uint64

		pubMu sync.Mutex
	}
)

// New returns a Session for an anonymous client on the landing view.
func New(ctx context.Context, deps Deps) *Session {
	if deps.NotificationTTL <= 0 {
		deps.NotificationTTL = DefaultNotificationTTL
	}
	if deps.AfterFunc == nil {
		deps.AfterFunc = func(d time.Duration, f func()) dispatch.Timer { return time.AfterFunc(d, f) }
	}
	if deps.OnChange == nil {
		deps.OnChange = func(State) {}
	}

	s := &Session{
		deps: deps,
		state: State{
			View:      session.ViewLanding,
			Faculties: []academic.Faculty{},
			Prodis:    []academic.Prodi{},
			Semesters: []academic.Semester{},
			Courses:   []academic.Course{},
		},
	}
	s.dispatcher = dispatch.New(ctx, deps.Catalog.Courses, dispatch.Options{
		QuietPeriod: deps.QuietPeriod,
		AfterFunc:   deps.AfterFunc,
		OnResult:    s.onCourses,
		OnLoading:   func(bool) { s.publish() },
	})
	return s
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	st := s.state
	st.Faculties = append([]academic.Faculty{}, s.state.Faculties...)
	st.Prodis = append([]academic.Prodi{}, s.state.Prodis...)
	st.Semesters = append([]academic.Semester{}, s.state.Semesters...)
	st.Courses = append([]academic.Course{}, s.state.Courses...)
	if s.state.Notification != nil {
		n := *s.state.Notification
		st.Notification = &n
	}
	s.mu.Unlock()

	st.Loading = s.dispatcher.Loading()
	return st
}

func (s *Session) publish() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.deps.OnChange(s.State())
}

// Start resolves who is signed in and loads the faculties and semesters concurrently.
// Failures are logged and leave the affected lists empty.
func (s *Session) Start(ctx context.Context, accessToken string) error {
	var (
		cu        *user.CurrentUser
		faculties []academic.Faculty
		semesters []academic.Semester
	)

	// the loads are independent: a failure only leaves its own result empty
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if cu, err = s.deps.Resolver.Resolve(ctx, accessToken); err != nil {
			cu = nil
			return errors.Wrap(err, "resolving session")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if faculties, err = s.deps.Catalog.Faculties(ctx); err != nil {
			faculties = nil
			return errors.Wrap(err, "loading faculties")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if semesters, err = s.deps.Catalog.Semesters(ctx); err != nil {
			semesters = nil
			return errors.Wrap(err, "loading semesters")
		}
		return nil
	})
	err := g.Wait()
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("starting browse session: %v", err), err)
	}

	s.mu.Lock()
	if faculties != nil {
		s.state.Faculties = faculties
	}
	if semesters != nil {
		s.state.Semesters = semesters
	}
	filter := s.state.Filter
	s.mu.Unlock()

	s.setUser(cu)
	s.dispatcher.Schedule(filter)
	s.publish()
	return err
}

// setUser routes the user to its initial view and gates course fetching.
func (s *Session) setUser(cu *user.CurrentUser) session.View {
	view := session.InitialView(cu)
	s.mu.Lock()
	s.state.User = cu
	s.state.CanModerate = session.CanModerate(cu)
	s.state.View = view
	s.mu.Unlock()

	s.dispatcher.SetActive(view.ShowsCourses())
	return view
}

// SignedIn switches to the signed in user and welcomes them.
func (s *Session) SignedIn(cu *user.CurrentUser) {
	s.setUser(cu)
	if cu != nil {
		s.notify("success", fmt.Sprintf("Welcome back, %s!", cu.FullName))
	}
	s.publish()
}

// SignedOut returns to the landing view.
func (s *Session) SignedOut() {
	s.setUser(nil)
	s.notify("info", "You have been signed out.")
	s.publish()
}

// Navigate shows view v if the current user may see it.
func (s *Session) Navigate(v session.View) error {
	s.mu.Lock()
	if !v.Valid() || !session.CanView(s.state.User, v) {
		s.mu.Unlock()
		return ErrViewNotAllowed
	}
	s.state.View = v
	s.mu.Unlock()

	s.dispatcher.SetActive(v.ShowsCourses())
	s.publish()
	return nil
}

// SetFaculty changes the faculty, clears the program and reloads the programs list.
func (s *Session) SetFaculty(ctx context.Context, facultyID string) error {
	s.mu.Lock()
	s.state.Filter = s.state.Filter.WithFaculty(facultyID)
	s.state.Prodis = []academic.Prodi{}
	s.prodiSeq++
	seq := s.prodiSeq
	filter := s.state.Filter
	s.mu.Unlock()

	s.dispatcher.Schedule(filter)
	s.publish()

	prodis, err := s.deps.Catalog.Prodis(ctx, filter.FacultyID)
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("loading programs: %v", err), err)
		return errors.Wrap(err, "loading programs")
	}

	s.mu.Lock()
	if seq != s.prodiSeq {
		s.mu.Unlock()
		return nil // faculty changed meanwhile
	}
	s.state.Prodis = prodis
	s.mu.Unlock()

	s.publish()
	return nil
}

// SetProdi filters by a program of the selected faculty. An empty id clears the program.
func (s *Session) SetProdi(prodiID string) error {
	prodiID = core.CleanString(prodiID)
	s.mu.Lock()
	if prodiID != "" {
		found := false
		for _, p := range s.state.Prodis {
			if p.ID == prodiID {
				found = true
				break
			}
		}
		if !found {
			s.mu.Unlock()
			return ErrUnknownProdi
		}
	}
	s.state.Filter = s.state.Filter.WithProdi(prodiID)
	filter := s.state.Filter
	s.mu.Unlock()

	s.dispatcher.Schedule(filter)
	s.publish()
	return nil
}

func (s *Session) SetSemester(semesterID string) {
	s.mu.Lock()
	s.state.Filter = s.state.Filter.WithSemester(semesterID)
	filter := s.state.Filter
	s.mu.Unlock()

	s.dispatcher.Schedule(filter)
	s.publish()
}

func (s *Session) SetSearch(search string) {
	s.mu.Lock()
	s.state.Filter = s.state.Filter.WithSearch(search)
	filter := s.state.Filter
	s.mu.Unlock()

	s.dispatcher.Schedule(filter)
	s.publish()
}

func (s *Session) onCourses(res dispatch.Result) {
	if res.Err != nil {
		if errors.Cause(res.Err) == context.Canceled {
			return
		}
		s.deps.Logger.Error(fmt.Sprintf("loading courses: %v", res.Err), res.Err)
		s.Notify("error", "Could not load courses.")
		return
	}

	courses := res.Courses
	if courses == nil {
		courses = []academic.Course{}
	}
	s.mu.Lock()
	s.state.Courses = courses
	s.mu.Unlock()
	s.publish()
}

// Notify shows a notification. It is dismissed after the notification TTL.
func (s *Session) Notify(kind, msg string) {
	s.notify(kind, msg)
	s.publish()
}

func (s *Session) notify(kind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifSeq++
	id := s.notifSeq
	s.state.Notification = &Notification{ID: id, Kind: kind, Message: msg}
	if s.notifTimer != nil {
		s.notifTimer.Stop()
	}
	s.notifTimer = s.deps.AfterFunc(s.deps.NotificationTTL, func() { s.Dismiss(id) })
}

// Dismiss removes notification id if it is still shown.
func (s *Session) Dismiss(id uint64) {
	s.mu.Lock()
	if s.state.Notification == nil || s.state.Notification.ID != id {
		s.mu.Unlock()
		return
	}
	s.state.Notification = nil
	s.mu.Unlock()
	s.publish()
}

// Close releases the timers of the session.
func (s *Session) Close() {
	s.dispatcher.Close()
	s.mu.Lock()
	if s.notifTimer != nil {
		s.notifTimer.Stop()
	}
	s.mu.Unlock()
}
