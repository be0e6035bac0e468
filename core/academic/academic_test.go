package academic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/storage/database/inmem"
	"github.com/trezcool/uninotes/tests"
)

func setup(t *testing.T) (*academic.Service, academic.Repository) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	testutil.SeedAcademics(db)
	repo := inmemdb.NewAcademicRepository(db)
	return academic.NewService(repo), repo
}

func TestFilterState_transitions(t *testing.T) {
	f := academic.FilterState{}.
		WithFaculty(" 1 ").
		WithProdi("2").
		WithSemester("1").
		WithSearch("data")
	assert.Equal(t, academic.FilterState{FacultyID: "1", ProdiID: "2", SemesterID: "1", Search: "data"}, f)
	assert.False(t, f.IsEmpty())

	// changing the faculty always clears the program
	f2 := f.WithFaculty("2")
	assert.Equal(t, "2", f2.FacultyID)
	assert.Empty(t, f2.ProdiID)
	assert.Equal(t, "1", f2.SemesterID)
	assert.Equal(t, "data", f2.Search)

	f3 := f.WithFaculty("")
	assert.Empty(t, f3.FacultyID)
	assert.Empty(t, f3.ProdiID)

	assert.True(t, academic.FilterState{Search: "   "}.IsEmpty())
}

func TestCompose(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter academic.FilterState
		want   academic.CourseQuery
		wantOk bool
	}{
		{name: "no filters", filter: academic.FilterState{}, want: academic.CourseQuery{}, wantOk: true},
		{
			name:   "program wins over faculty",
			filter: academic.FilterState{FacultyID: "1", ProdiID: "1"},
			want:   academic.CourseQuery{ProdiIDs: []string{"1"}},
			wantOk: true,
		},
		{
			name:   "faculty expands to its programs",
			filter: academic.FilterState{FacultyID: "1"},
			want:   academic.CourseQuery{ProdiIDs: []string{"2", "1"}},
			wantOk: true,
		},
		{name: "faculty without programs", filter: academic.FilterState{FacultyID: "3"}, wantOk: false},
		{
			name:   "semester and search",
			filter: academic.FilterState{SemesterID: " 1 ", Search: " if "},
			want:   academic.CourseQuery{SemesterID: "1", Search: "if"},
			wantOk: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := academic.Compose(ctx, repo, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOk, ok)
			if !tt.wantOk {
				return
			}
			assert.ElementsMatch(t, tt.want.ProdiIDs, got.ProdiIDs)
			assert.Equal(t, tt.want.ProdiIDs == nil, got.ProdiIDs == nil)
			assert.Equal(t, tt.want.SemesterID, got.SemesterID)
			assert.Equal(t, tt.want.Search, got.Search)
		})
	}
}

func TestCourseQuery_Matches(t *testing.T) {
	c := testutil.CourseDatabases
	assert.True(t, academic.CourseQuery{}.Matches(c))
	assert.True(t, academic.CourseQuery{ProdiIDs: []string{"2", "1"}}.Matches(c))
	assert.False(t, academic.CourseQuery{ProdiIDs: []string{}}.Matches(c))
	assert.False(t, academic.CourseQuery{SemesterID: "1"}.Matches(c))
	assert.True(t, academic.CourseQuery{Search: "DATA"}.Matches(c))
	assert.True(t, academic.CourseQuery{Search: "if2"}.Matches(c))
	assert.False(t, academic.CourseQuery{Search: "mech"}.Matches(c))
}

func TestService_Courses(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	programming := testutil.JoinedCourse(testutil.CourseProgramming)
	databases := testutil.JoinedCourse(testutil.CourseDatabases)
	mechanics := testutil.JoinedCourse(testutil.CourseMechanics)
	management := testutil.JoinedCourse(testutil.CourseManagement)
	empty := []academic.Course{}

	tests := []struct {
		name   string
		filter academic.FilterState
		want   []academic.Course
	}{
		{name: "no filters", filter: academic.FilterState{}, want: []academic.Course{mechanics, programming, databases, management}},
		{name: "faculty", filter: academic.FilterState{FacultyID: "1"}, want: []academic.Course{mechanics, programming, databases}},
		{name: "faculty + program", filter: academic.FilterState{FacultyID: "1", ProdiID: "1"}, want: []academic.Course{programming, databases}},
		{name: "faculty without programs", filter: academic.FilterState{FacultyID: "3"}, want: empty},
		{name: "semester", filter: academic.FilterState{SemesterID: "1"}, want: []academic.Course{mechanics, programming, management}},
		{name: "search code", filter: academic.FilterState{Search: "if"}, want: []academic.Course{programming, databases}},
		{name: "search title", filter: academic.FilterState{Search: "MAN"}, want: []academic.Course{management}},
		{name: "search ANDed", filter: academic.FilterState{FacultyID: "2", Search: "if"}, want: empty},
		{name: "search unknown", filter: academic.FilterState{Search: "lol"}, want: empty},
		{
			name:   "all filters",
			filter: academic.FilterState{FacultyID: "1", ProdiID: "1", SemesterID: "2", Search: "base"},
			want:   []academic.Course{databases},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Courses(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Prodis(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	got, err := svc.Prodis(ctx, testutil.FacultyEngineering.ID)
	require.NoError(t, err)
	assert.Equal(t, []academic.Prodi{testutil.ProdiCivil, testutil.ProdiInformatics}, got)

	got, err = svc.Prodis(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Prodis(ctx, testutil.FacultyLaw.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_CheckProdi(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	assert.NoError(t, svc.CheckProdi(ctx, "1", "1"))
	assert.Equal(t, academic.ErrProdiMismatch, svc.CheckProdi(ctx, "2", "1"))

	err := svc.CheckProdi(ctx, "1", "404")
	if assert.IsType(t, &core.ValidationError{}, err) {
		assert.Equal(t, "prodi_id", err.(*core.ValidationError).Fields[0].Field)
	}
}

func TestService_Course(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	c, err := svc.Course(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Course of study program Informatics", c.Description)
	assert.Equal(t, "Semester 2", c.Semester)
	assert.Equal(t, "1", c.FacultyID)

	_, err = svc.Course(ctx, "404")
	assert.True(t, core.IsNotFound(err))
}
