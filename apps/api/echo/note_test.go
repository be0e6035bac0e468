package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/uninotes/core/note"
	"github.com/trezcool/uninotes/core/user"
	testutil "github.com/trezcool/uninotes/tests"
)

func noteFields(title string) map[string]string {
	return map[string]string{
		"title":       title,
		"description": "Intro lecture",
		"file_type":   "pdf",
		"course_id":   testutil.CourseProgramming.ID,
	}
}

func pdfFile() *formFile {
	return &formFile{field: "file", name: "week 1.pdf", contentType: "application/pdf", content: []byte("%PDF-1.4")}
}

func TestNoteApi_upload(t *testing.T) {
	app := setup(t)
	jane, token := app.createUser(t, "u-1", "Jane Roe", "jane@uni.test", user.RoleUser)

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		file     *formFile
		wantCode int
		wantData []byte
	}{
		{
			name:     "anonymous",
			fields:   noteFields("Week 1"),
			file:     pdfFile(),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "missing file",
			token:    token,
			fields:   noteFields("Week 1"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"file": "this field is required"}),
		},
		{
			name:     "not a pdf",
			token:    token,
			fields:   noteFields("Week 1"),
			file:     &formFile{field: "file", name: "week1.png", contentType: "image/png", content: []byte("png")},
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"file": "file must be a PDF document"}),
		},
		{
			name:     "unknown course",
			token:    token,
			fields:   map[string]string{"title": "Week 1", "file_type": "PDF", "course_id": "99"},
			file:     pdfFile(),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"course_id": "unknown course"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newMultipartRequest(t, http.MethodPost, "/v1/notes", tt.token, tt.fields, tt.file)
			app.serve(req, rec)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}
	assert.Equal(t, 0, app.store.Len())

	t.Run("blank title", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, "/v1/notes", token, noteFields("   "), pdfFile())
		app.serve(req, rec)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		fields := make(map[string]string)
		unmarshal(t, rec, &fields)
		assert.Contains(t, fields, "title")
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, "/v1/notes", token, noteFields(" Week 1 "), pdfFile())
		app.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var n note.Note
		unmarshal(t, rec, &n)
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, "Week 1", n.Title)
		assert.Equal(t, note.FileTypePDF, n.FileType)
		assert.Equal(t, jane.ID, n.UploaderID)
		assert.Equal(t, "Jane Roe", n.UploaderName)
		assert.Equal(t, "IF101", n.CourseCode)
		assert.Equal(t, testutil.FacultyEngineering.ID, n.FacultyID)
		assert.Equal(t, testutil.ProdiInformatics.ID, n.ProdiID)
		assert.Equal(t, testutil.Semester1.ID, n.SemesterID)
		assert.Contains(t, n.FileURL, "http://storage.test/notes/")
		assert.Equal(t, 1, app.store.Len())
	})
}

func TestNoteApi_lifecycle(t *testing.T) {
	app := setup(t)
	_, janeToken := app.createUser(t, "u-1", "Jane Roe", "jane@uni.test", user.RoleUser)
	_, bobToken := app.createUser(t, "u-2", "Bob Doe", "bob@uni.test", user.RoleUser)
	_, adaToken := app.createUser(t, "u-3", "Ada Admin", "ada@uni.test", user.RoleAdmin)

	req, rec := newMultipartRequest(t, http.MethodPost, "/v1/notes", janeToken, noteFields("Week 1"), pdfFile())
	app.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created note.Note
	unmarshal(t, rec, &created)
	path := "/v1/notes/" + created.ID

	t.Run("queries", func(t *testing.T) {
		var recent []note.Recent
		req, rec := newRequest(http.MethodGet, "/v1/notes/recent")
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &recent)
		if assert.Len(t, recent, 1) {
			assert.Equal(t, "Week 1", recent[0].Title)
			assert.Equal(t, "Programming", recent[0].Category)
			assert.Equal(t, "Jane Roe", recent[0].Author)
		}

		for _, tt := range []struct {
			path  string
			token string
			want  int
		}{
			{"/v1/courses/1/notes", "", 1},
			{"/v1/courses/2/notes", "", 0},
			{"/v1/notes/mine", janeToken, 1},
			{"/v1/notes/mine", bobToken, 0},
		} {
			var notes []note.Note
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, tt.path)
			unmarshal(t, rec, &notes)
			assert.Len(t, notes, tt.want, tt.path)
		}
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "update by another user",
			method:   http.MethodPut,
			path:     path,
			body:     marchallObj(t, echo.Map{"title": "Mine now"}),
			token:    bobToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "forbidden: not the owner of this note"}),
		},
		{
			name:     "changing the file type needs a file",
			method:   http.MethodPut,
			path:     path,
			body:     marchallObj(t, echo.Map{"file_type": "IMG"}),
			token:    janeToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"file": "a new file is required when changing the file type"}),
		},
		{
			name:     "unknown note",
			method:   http.MethodPut,
			path:     "/v1/notes/99",
			body:     marchallObj(t, echo.Map{"title": "Nope"}),
			token:    janeToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "note not found"}),
		},
	})

	t.Run("update title", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, janeToken, marchallObj(t, echo.Map{"title": "Week 1 (rev)"}))
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var n note.Note
		unmarshal(t, rec, &n)
		assert.Equal(t, "Week 1 (rev)", n.Title)
		assert.Equal(t, "Intro lecture", n.Description)
	})

	t.Run("replace the file", func(t *testing.T) {
		img := &formFile{field: "file", name: "board.png", contentType: "image/png", content: []byte("png")}
		req, rec := newMultipartRequest(t, http.MethodPut, path, janeToken, map[string]string{"file_type": "IMG", "description": ""}, img)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var n note.Note
		unmarshal(t, rec, &n)
		assert.Equal(t, note.FileTypeIMG, n.FileType)
		assert.Equal(t, "Week 1 (rev)", n.Title)
		assert.Equal(t, "", n.Description)
		assert.NotEqual(t, created.FileURL, n.FileURL)
		assert.Equal(t, 1, app.store.Len()) // old file removed
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "delete by another user",
			method:   http.MethodDelete,
			path:     path,
			token:    bobToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "forbidden: not the owner of this note"}),
		},
		{
			name:     "delete by a moderator",
			method:   http.MethodDelete,
			path:     path,
			token:    adaToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     path,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "note not found"}),
		},
	})
	assert.Equal(t, 0, app.store.Len())
}
