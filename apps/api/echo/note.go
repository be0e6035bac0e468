package echoapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/note"
)

const noteFileField = "file"

type noteApi struct {
	svc *note.Service
}

func registerNoteAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth authenticator, deps *Deps) {
	api := noteApi{svc: deps.NoteSvc}

	g.GET("/courses/:id/notes", api.byCourse)

	ng := g.Group("/notes")
	ng.GET("/recent", api.recent)
	ng.GET("/:id", api.retrieve)

	// authed endpoints
	ag := ng.Group("", jwt, auth.requireUser)
	ag.POST("", api.upload)
	ag.GET("/mine", api.mine)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *noteApi) byCourse(ctx echo.Context) error {
	notes, err := api.svc.ByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *noteApi) recent(ctx echo.Context) error {
	recent, err := api.svc.Recent(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recent)
}

func (api *noteApi) retrieve(ctx echo.Context) error {
	n, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noteApi) mine(ctx echo.Context) error {
	cu, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	notes, err := api.svc.ByUploader(ctx.Request().Context(), cu.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notes)
}

// upload expects a multipart form with the note fields and its `file`.
func (api *noteApi) upload(ctx echo.Context) error {
	cu, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	file, closer, err := bindFile(ctx, noteFileField)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	data := note.NewNote{
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		FileType:    note.FileType(ctx.FormValue("file_type")),
		CourseID:    ctx.FormValue("course_id"),
		FacultyID:   ctx.FormValue("faculty_id"),
		ProdiID:     ctx.FormValue("prodi_id"),
		SemesterID:  ctx.FormValue("semester_id"),
	}
	n, err := api.svc.Upload(ctx.Request().Context(), cu, data, file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, n)
}

// update accepts JSON, or a multipart form when the file is replaced.
func (api *noteApi) update(ctx echo.Context) error {
	cu, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	data := new(note.UpdateNote)
	var file *core.File
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := ctx.MultipartForm()
		if err != nil {
			return err
		}
		data.Title = firstValue(form.Value["title"])
		data.FileType = note.FileType(firstValue(form.Value["file_type"]))
		if vals, ok := form.Value["description"]; ok {
			d := firstValue(vals)
			data.Description = &d
		}
		if fhs := form.File[noteFileField]; len(fhs) > 0 {
			var closer io.Closer
			if file, closer, err = openFile(fhs[0]); err != nil {
				return err
			}
			defer closeQuietly(closer)
		}
	} else if err = ctx.Bind(data); err != nil {
		return err
	}

	n, err := api.svc.Update(ctx.Request().Context(), cu, ctx.Param("id"), *data, file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noteApi) destroy(ctx echo.Context) error {
	cu, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.Delete(ctx.Request().Context(), cu, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func firstValue(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
