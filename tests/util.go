// Package testutil holds fixtures and fakes shared by the tests.
package testutil

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/dispatch"
	"github.com/trezcool/uninotes/core/user"
	"github.com/trezcool/uninotes/storage/database/inmem"
)

// NewConfig returns the configuration used by the tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "UniNotes",
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:5173",
		DefaultFromEmail: mail.Address{Name: "UniNotes", Address: "noreply@uninotes.test"},
		Server:           core.ServerConfig{Host: ":8000", ShutdownTimeout: time.Second},
		Auth: core.AuthConfig{
			Provider:            "dummy",
			JWTSecret:           "test-secret-with-at-least-32-characters",
			JWTExpirationDelta:  time.Hour,
			RecoveryResendDelay: 60 * time.Second,
		},
		Storage: core.StorageConfig{
			Provider:      "memory",
			PublicBaseURL: "http://storage.test",
			NotesBucket:   "notes",
			AvatarsBucket: "avatars",
			MaxNoteSize:   10 << 20,
			MaxAvatarSize: 2 << 20,
		},
		Audit:  core.AuditConfig{Capacity: 500, Key: "test:audit"},
		Browse: core.BrowseConfig{QuietPeriod: 300 * time.Millisecond, NotificationTTL: 4000 * time.Millisecond},
	}
}

// NewValidator returns a validator with the app validations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Logger records the logged messages.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Entries returns the entries of a level ("" for all).
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]LogEntry, 0)
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

// Timers is a manual clock for code scheduling with dispatch.AfterFunc.
// Timers only fire through Advance.
type Timers struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	parent  *Timers
	at      time.Duration
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

func NewTimers() *Timers { return &Timers{} }

// AfterFunc is a dispatch.AfterFunc.
func (ts *Timers) AfterFunc(d time.Duration, f func()) dispatch.Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &fakeTimer{parent: ts, at: ts.now + d, d: d, f: f}
	ts.timers = append(ts.timers, t)
	return t
}

// Advance moves the clock and runs, synchronously and in order, the timers due.
func (ts *Timers) Advance(d time.Duration) {
	ts.mu.Lock()
	ts.now += d
	now := ts.now
	ts.mu.Unlock()

	for {
		ts.mu.Lock()
		var next *fakeTimer
		for _, t := range ts.timers {
			if !t.stopped && !t.fired && t.at <= now && (next == nil || t.at < next.at) {
				next = t
			}
		}
		if next != nil {
			next.fired = true
		}
		ts.mu.Unlock()

		if next == nil {
			return
		}
		next.f()
	}
}

// Pending returns the durations of the timers not fired nor stopped.
func (ts *Timers) Pending() []time.Duration {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	pending := make([]time.Duration, 0)
	for _, t := range ts.timers {
		if !t.stopped && !t.fired {
			pending = append(pending, t.d)
		}
	}
	return pending
}

// Master data seeded by SeedAcademics.
var (
	FacultyEngineering = academic.Faculty{ID: "1", Name: "Engineering"}
	FacultyEconomics   = academic.Faculty{ID: "2", Name: "Economics"}
	FacultyLaw         = academic.Faculty{ID: "3", Name: "Law"} // no programs

	ProdiInformatics = academic.Prodi{ID: "1", Name: "Informatics", FacultyID: "1"}
	ProdiCivil       = academic.Prodi{ID: "2", Name: "Civil Engineering", FacultyID: "1"}
	ProdiManagement  = academic.Prodi{ID: "3", Name: "Management", FacultyID: "2"}

	Semester1 = academic.Semester{ID: "1", Name: "Semester 1"}
	Semester2 = academic.Semester{ID: "2", Name: "Semester 2"}

	CourseProgramming = academic.Course{ID: "1", Code: "IF101", Title: "Programming", ProdiID: "1", SemesterID: "1"}
	CourseDatabases   = academic.Course{ID: "2", Code: "IF202", Title: "Databases", ProdiID: "1", SemesterID: "2"}
	CourseMechanics   = academic.Course{ID: "3", Code: "CE101", Title: "Mechanics", ProdiID: "2", SemesterID: "1"}
	CourseManagement  = academic.Course{ID: "4", Code: "MN101", Title: "Management Basics", ProdiID: "3", SemesterID: "1"}
)

func SeedAcademics(db *inmemdb.DB) {
	db.Seed(
		[]academic.Faculty{FacultyEngineering, FacultyEconomics, FacultyLaw},
		[]academic.Prodi{ProdiInformatics, ProdiCivil, ProdiManagement},
		[]academic.Semester{Semester1, Semester2},
		[]academic.Course{CourseProgramming, CourseDatabases, CourseMechanics, CourseManagement},
	)
}

// JoinedCourse returns c as the repositories return it.
func JoinedCourse(c academic.Course) academic.Course {
	prodis := map[string]academic.Prodi{"1": ProdiInformatics, "2": ProdiCivil, "3": ProdiManagement}
	semesters := map[string]academic.Semester{"1": Semester1, "2": Semester2}
	p := prodis[c.ProdiID]
	c.Prodi = p.Name
	c.FacultyID = p.FacultyID
	c.Semester = semesters[c.SemesterID].Name
	c.Description = academic.CourseDescription(p.Name)
	return c
}

// CreateProfile inserts a profile in the Engineering faculty (Informatics).
func CreateProfile(t *testing.T, repo user.Repository, id, name, email string, role user.Role, createdAt ...time.Time) user.Profile {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p, err := repo.CreateProfile(context.Background(), user.Profile{
		ID:        id,
		Email:     email,
		FullName:  name,
		Role:      role,
		FacultyID: FacultyEngineering.ID,
		ProdiID:   ProdiInformatics.ID,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return p
}
