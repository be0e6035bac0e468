package inmemdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/trezcool/uninotes/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) QueryFaculties(_ context.Context) ([]academic.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	faculties := make([]academic.Faculty, 0, len(repo.db.faculties))
	for _, f := range repo.db.faculties {
		faculties = append(faculties, f)
	}
	sort.Slice(faculties, func(i, j int) bool { return faculties[i].Name < faculties[j].Name })
	return faculties, nil
}

func (repo *academicRepository) QueryProdis(_ context.Context, facultyID string) ([]academic.Prodi, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	prodis := make([]academic.Prodi, 0)
	for _, p := range repo.db.prodis {
		if p.FacultyID == facultyID {
			prodis = append(prodis, p)
		}
	}
	sort.Slice(prodis, func(i, j int) bool { return prodis[i].Name < prodis[j].Name })
	return prodis, nil
}

func (repo *academicRepository) QueryProdiIDs(ctx context.Context, facultyID string) ([]string, error) {
	prodis, err := repo.QueryProdis(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(prodis))
	for _, p := range prodis {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (repo *academicRepository) GetProdi(_ context.Context, id string) (academic.Prodi, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.prodis[id]; ok {
		return p, nil
	}
	return academic.Prodi{}, academic.ErrProdiNotFound
}

func (repo *academicRepository) QuerySemesters(_ context.Context) ([]academic.Semester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	semesters := make([]academic.Semester, 0, len(repo.db.semesters))
	for _, s := range repo.db.semesters {
		semesters = append(semesters, s)
	}
	sort.Slice(semesters, func(i, j int) bool { return lessID(semesters[i].ID, semesters[j].ID) })
	return semesters, nil
}

// course joins c with its program, faculty and semester. Caller must hold the lock.
func (repo *academicRepository) course(c academic.Course) academic.Course {
	if p, ok := repo.db.prodis[c.ProdiID]; ok {
		c.Prodi = p.Name
		c.FacultyID = p.FacultyID
	}
	c.Semester = repo.db.semesters[c.SemesterID].Name
	c.Description = academic.CourseDescription(c.Prodi)
	return c
}

func (repo *academicRepository) QueryCourses(_ context.Context, q academic.CourseQuery) ([]academic.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]academic.Course, 0)
	for _, c := range repo.db.courses {
		if q.Matches(c) {
			courses = append(courses, repo.course(c))
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *academicRepository) GetCourse(_ context.Context, id string) (academic.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return repo.course(c), nil
	}
	return academic.Course{}, academic.ErrCourseNotFound
}

// lessID orders numeric ids numerically and the others lexically.
func lessID(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
