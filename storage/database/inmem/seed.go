package inmemdb

import (
	"strconv"

	"github.com/trezcool/uninotes/core/academic"
)

// SeedMasterData inserts the master data shipped with the SQL migrations.
func (db *DB) SeedMasterData() {
	semesters := make([]academic.Semester, 0, 8)
	for i := 1; i <= 8; i++ {
		id := strconv.Itoa(i)
		semesters = append(semesters, academic.Semester{ID: id, Name: "Semester " + id})
	}

	db.Seed(
		[]academic.Faculty{
			{ID: "1", Name: "Faculty of Engineering"},
			{ID: "2", Name: "Faculty of Economics and Business"},
			{ID: "3", Name: "Faculty of Medicine"},
		},
		[]academic.Prodi{
			{ID: "1", Name: "Informatics", FacultyID: "1"},
			{ID: "2", Name: "Civil Engineering", FacultyID: "1"},
			{ID: "3", Name: "Management", FacultyID: "2"},
			{ID: "4", Name: "Accounting", FacultyID: "2"},
		},
		semesters,
		[]academic.Course{
			{ID: "1", Code: "IF101", Title: "Introduction to Programming", ProdiID: "1", SemesterID: "1"},
			{ID: "2", Code: "IF201", Title: "Data Structures", ProdiID: "1", SemesterID: "3"},
			{ID: "3", Code: "IF301", Title: "Databases", ProdiID: "1", SemesterID: "5"},
			{ID: "4", Code: "CE101", Title: "Engineering Mechanics", ProdiID: "2", SemesterID: "1"},
			{ID: "5", Code: "MN101", Title: "Introduction to Management", ProdiID: "3", SemesterID: "1"},
			{ID: "6", Code: "AK201", Title: "Financial Accounting", ProdiID: "4", SemesterID: "3"},
		},
	)
}
