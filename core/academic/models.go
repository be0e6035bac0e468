package academic

import (
	"github.com/trezcool/uninotes/core"
)

type (
	Faculty struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Prodi is a study program. It belongs to exactly one Faculty.
	Prodi struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		FacultyID string `json:"faculty_id"`
	}

	Semester struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Course struct {
		ID          string `json:"id"`
		Code        string `json:"code"`
		Title       string `json:"title"`
		Description string `json:"description"`
		FacultyID   string `json:"faculty_id"`
		ProdiID     string `json:"prodi_id"`
		Prodi       string `json:"prodi"`
		SemesterID  string `json:"semester_id"`
		Semester    string `json:"semester"`
	}
)

// CourseDescription is the description shown for courses of a program.
func CourseDescription(prodiName string) string {
	if prodiName == "" {
		return "Course"
	}
	return "Course of study program " + prodiName
}

// FilterState is the browse filter. Empty strings mean "no filter".
// A non-empty ProdiID always belongs to FacultyID when both were set through the With* transitions.
type FilterState struct {
	FacultyID  string `json:"faculty_id" query:"faculty"`
	ProdiID    string `json:"prodi_id" query:"prodi"`
	SemesterID string `json:"semester_id" query:"semester"`
	Search     string `json:"search" query:"search"`
}

// WithFaculty sets the faculty and always clears the program, even when id is empty.
func (f FilterState) WithFaculty(id string) FilterState {
	f.FacultyID = core.CleanString(id)
	f.ProdiID = ""
	return f
}

func (f FilterState) WithProdi(id string) FilterState {
	f.ProdiID = core.CleanString(id)
	return f
}

func (f FilterState) WithSemester(id string) FilterState {
	f.SemesterID = core.CleanString(id)
	return f
}

func (f FilterState) WithSearch(s string) FilterState {
	f.Search = s
	return f
}

func (f FilterState) IsEmpty() bool {
	return f.FacultyID == "" && f.ProdiID == "" && f.SemesterID == "" && core.CleanString(f.Search) == ""
}

// Clean trims all the fields.
func (f *FilterState) Clean() {
	f.FacultyID = core.CleanString(f.FacultyID)
	f.ProdiID = core.CleanString(f.ProdiID)
	f.SemesterID = core.CleanString(f.SemesterID)
	f.Search = core.CleanString(f.Search)
}

// CourseQuery is a composed course query. All conditions are ANDed.
type CourseQuery struct {
	ProdiIDs   []string // nil: any program
	SemesterID string   // "": any semester
	Search     string   // case-insensitive substring of code OR title; "": no search
}
