package academic

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
)

// ProdiLister lists the program ids of a faculty.
type ProdiLister interface {
	QueryProdiIDs(ctx context.Context, facultyID string) ([]string, error)
}

// Compose turns a FilterState into a CourseQuery.
//  1. a program filters by that program only
//  2. otherwise a faculty filters by the programs of that faculty;
//     a faculty without programs yields ok=false: the result is empty and no course query must run
//  3. a semester is an equality filter
//  4. a search matches code OR title, ANDed with the rest
//  5. no filters: every course
func Compose(ctx context.Context, lister ProdiLister, f FilterState) (q CourseQuery, ok bool, err error) {
	f.Clean()

	switch {
	case f.ProdiID != "":
		q.ProdiIDs = []string{f.ProdiID}
	case f.FacultyID != "":
		ids, err := lister.QueryProdiIDs(ctx, f.FacultyID)
		if err != nil {
			return CourseQuery{}, false, errors.Wrap(err, "querying faculty programs")
		}
		if len(ids) == 0 {
			return CourseQuery{}, false, nil
		}
		q.ProdiIDs = ids
	}

	q.SemesterID = f.SemesterID
	q.Search = f.Search
	return q, true, nil
}

// Matches tells whether a course satisfies the query. Used by in-memory stores.
func (q CourseQuery) Matches(c Course) bool {
	if q.ProdiIDs != nil {
		found := false
		for _, id := range q.ProdiIDs {
			if c.ProdiID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.SemesterID != "" && c.SemesterID != q.SemesterID {
		return false
	}
	if q.Search != "" {
		s := core.CleanString(q.Search, true /* lower */)
		if !containsFold(c.Code, s) && !containsFold(c.Title, s) {
			return false
		}
	}
	return true
}

func containsFold(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}
