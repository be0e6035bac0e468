package academic

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
)

var (
	// errors
	ErrCourseNotFound = core.NewNotFoundError("course")
	ErrProdiNotFound  = core.NewNotFoundError("program")
	ErrProdiMismatch  = core.NewFieldError("prodi_id", "program does not belong to the selected faculty")
)

type (
	Repository interface {
		ProdiLister

		// QueryFaculties returns all faculties ordered by name.
		QueryFaculties(ctx context.Context) ([]Faculty, error)
		// QueryProdis returns the programs of a faculty ordered by name.
		QueryProdis(ctx context.Context, facultyID string) ([]Prodi, error)
		GetProdi(ctx context.Context, id string) (Prodi, error)
		// QuerySemesters returns all semesters ordered by id.
		QuerySemesters(ctx context.Context) ([]Semester, error)
		QueryCourses(ctx context.Context, q CourseQuery) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Faculties(ctx context.Context) ([]Faculty, error) {
	return svc.repo.QueryFaculties(ctx)
}

// Prodis returns the programs of a faculty. No faculty means no programs.
func (svc *Service) Prodis(ctx context.Context, facultyID string) ([]Prodi, error) {
	facultyID = core.CleanString(facultyID)
	if facultyID == "" {
		return []Prodi{}, nil
	}
	return svc.repo.QueryProdis(ctx, facultyID)
}

func (svc *Service) Semesters(ctx context.Context) ([]Semester, error) {
	return svc.repo.QuerySemesters(ctx)
}

// Courses returns the courses matching the filter.
func (svc *Service) Courses(ctx context.Context, f FilterState) ([]Course, error) {
	q, ok, err := Compose(ctx, svc.repo, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Course{}, nil
	}
	courses, err := svc.repo.QueryCourses(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (svc *Service) Course(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, core.CleanString(id))
}

// CheckProdi makes sure the program exists and belongs to the faculty.
func (svc *Service) CheckProdi(ctx context.Context, facultyID, prodiID string) error {
	p, err := svc.repo.GetProdi(ctx, prodiID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldError("prodi_id", "unknown program")
		}
		return errors.Wrap(err, "getting program")
	}
	if p.FacultyID != facultyID {
		return ErrProdiMismatch
	}
	return nil
}
