package inmemdb

import (
	"sync"

	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/note"
	"github.com/trezcool/uninotes/core/user"
)

type (
	// DB is an in-memory database. Repositories join the tables the way the SQL ones do.
	DB struct {
		sync.RWMutex
		profiles  map[string]*user.Profile
		faculties map[string]academic.Faculty
		prodis    map[string]academic.Prodi
		semesters map[string]academic.Semester
		courses   map[string]academic.Course
		notes     map[string]*note.Note
		noteSeq   int
	}
)

func Open() (*DB, error) {
	db := &DB{
		profiles:  make(map[string]*user.Profile),
		faculties: make(map[string]academic.Faculty),
		prodis:    make(map[string]academic.Prodi),
		semesters: make(map[string]academic.Semester),
		courses:   make(map[string]academic.Course),
		notes:     make(map[string]*note.Note),
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.profiles = make(map[string]*user.Profile)
	db.faculties = make(map[string]academic.Faculty)
	db.prodis = make(map[string]academic.Prodi)
	db.semesters = make(map[string]academic.Semester)
	db.courses = make(map[string]academic.Course)
	db.notes = make(map[string]*note.Note)
	db.noteSeq = 0
}

// Seed inserts master data. Names are joined onto courses and notes by the repositories on read.
func (db *DB) Seed(
	faculties []academic.Faculty,
	prodis []academic.Prodi,
	semesters []academic.Semester,
	courses []academic.Course,
) {
	db.Lock()
	defer db.Unlock()
	for _, f := range faculties {
		db.faculties[f.ID] = f
	}
	for _, p := range prodis {
		db.prodis[p.ID] = p
	}
	for _, s := range semesters {
		db.semesters[s.ID] = s
	}
	for _, c := range courses {
		db.courses[c.ID] = c
	}
}
