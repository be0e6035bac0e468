package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
)

type (
	facultyRow struct {
		ID   string `db:"id_faculty"`
		Name string `db:"faculty_name"`
	}

	prodiRow struct {
		ID        string         `db:"id_prodi"`
		Name      string         `db:"prodi_name"`
		FacultyID sql.NullString `db:"id_faculty"`
	}

	semesterRow struct {
		ID   string `db:"id_semester"`
		Name string `db:"semester_name"`
	}

	courseRow struct {
		ID         string         `db:"id_courses"`
		Code       sql.NullString `db:"matkul_code"`
		Title      sql.NullString `db:"matkul_name"`
		ProdiID    sql.NullString `db:"id_prodi"`
		SemesterID sql.NullString `db:"id_semester"`
		FacultyID  sql.NullString `db:"id_faculty"`
		Prodi      sql.NullString `db:"prodi_name"`
		Semester   sql.NullString `db:"semester_name"`
	}
)

func (r courseRow) course() academic.Course {
	return academic.Course{
		ID:          r.ID,
		Code:        r.Code.String,
		Title:       r.Title.String,
		Description: academic.CourseDescription(r.Prodi.String),
		FacultyID:   r.FacultyID.String,
		ProdiID:     r.ProdiID.String,
		Prodi:       r.Prodi.String,
		SemesterID:  r.SemesterID.String,
		Semester:    r.Semester.String,
	}
}

const courseSelect = `
SELECT c.id_courses, c.matkul_code, c.matkul_name, c.id_prodi, c.id_semester,
       pr.id_faculty, pr.prodi_name, s.semester_name
FROM courses c
LEFT JOIN prodi pr ON pr.id_prodi = c.id_prodi
LEFT JOIN semesters s ON s.id_semester = c.id_semester`

type academicRepository struct {
	exec core.DBExecutor
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(exec core.DBExecutor) academic.Repository {
	return &academicRepository{exec: exec}
}

func (repo academicRepository) QueryFaculties(ctx context.Context) ([]academic.Faculty, error) {
	var rows []facultyRow
	q := "SELECT id_faculty, faculty_name FROM faculties ORDER BY faculty_name"
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting faculties")
	}
	faculties := make([]academic.Faculty, 0, len(rows))
	for _, r := range rows {
		faculties = append(faculties, academic.Faculty{ID: r.ID, Name: r.Name})
	}
	return faculties, nil
}

func (repo academicRepository) QueryProdis(ctx context.Context, facultyID string) ([]academic.Prodi, error) {
	var rows []prodiRow
	q := repo.exec.Rebind("SELECT id_prodi, prodi_name, id_faculty FROM prodi WHERE id_faculty = ? ORDER BY prodi_name")
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, facultyID); err != nil {
		return nil, errors.Wrap(err, "selecting programs")
	}
	prodis := make([]academic.Prodi, 0, len(rows))
	for _, r := range rows {
		prodis = append(prodis, academic.Prodi{ID: r.ID, Name: r.Name, FacultyID: r.FacultyID.String})
	}
	return prodis, nil
}

func (repo academicRepository) QueryProdiIDs(ctx context.Context, facultyID string) ([]string, error) {
	ids := make([]string, 0)
	q := repo.exec.Rebind("SELECT id_prodi FROM prodi WHERE id_faculty = ?")
	if err := sqlx.SelectContext(ctx, repo.exec, &ids, q, facultyID); err != nil {
		return nil, errors.Wrap(err, "selecting program ids")
	}
	return ids, nil
}

func (repo academicRepository) GetProdi(ctx context.Context, id string) (academic.Prodi, error) {
	var r prodiRow
	q := repo.exec.Rebind("SELECT id_prodi, prodi_name, id_faculty FROM prodi WHERE id_prodi = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &r, q, id); err != nil {
		return academic.Prodi{}, trapNoRowsErr(err, academic.ErrProdiNotFound)
	}
	return academic.Prodi{ID: r.ID, Name: r.Name, FacultyID: r.FacultyID.String}, nil
}

func (repo academicRepository) QuerySemesters(ctx context.Context) ([]academic.Semester, error) {
	var rows []semesterRow
	q := "SELECT id_semester, semester_name FROM semesters ORDER BY id_semester"
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting semesters")
	}
	semesters := make([]academic.Semester, 0, len(rows))
	for _, r := range rows {
		semesters = append(semesters, academic.Semester{ID: r.ID, Name: r.Name})
	}
	return semesters, nil
}

// QueryCourses runs a composed query. Conditions are ANDed; the search matches code OR title.
func (repo academicRepository) QueryCourses(ctx context.Context, cq academic.CourseQuery) ([]academic.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	if cq.ProdiIDs != nil {
		if len(cq.ProdiIDs) == 0 {
			return []academic.Course{}, nil
		}
		conds = append(conds, "c.id_prodi IN (?)")
		args = append(args, cq.ProdiIDs)
	}
	if cq.SemesterID != "" {
		conds = append(conds, "c.id_semester = ?")
		args = append(args, cq.SemesterID)
	}
	if s := core.CleanString(cq.Search); s != "" {
		conds = append(conds, `(c.matkul_code ILIKE ? OR c.matkul_name ILIKE ?)`)
		args = append(args, containsPattern(s), containsPattern(s))
	}

	q := courseSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY c.matkul_code"

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "expanding course query")
	}
	var rows []courseRow
	if err = sqlx.SelectContext(ctx, repo.exec, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]academic.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo academicRepository) GetCourse(ctx context.Context, id string) (academic.Course, error) {
	var r courseRow
	q := repo.exec.Rebind(courseSelect + " WHERE c.id_courses = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &r, q, id); err != nil {
		return academic.Course{}, trapNoRowsErr(err, academic.ErrCourseNotFound)
	}
	return r.course(), nil
}
