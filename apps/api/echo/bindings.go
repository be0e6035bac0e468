package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/academic"
)

const limitParam = "limit"

// bindFilter reads the course filter from the query params.
func bindFilter(ctx echo.Context) academic.FilterState {
	var f academic.FilterState
	f = f.WithFaculty(ctx.QueryParam("faculty"))
	f = f.WithProdi(ctx.QueryParam("prodi"))
	f = f.WithSemester(ctx.QueryParam("semester"))
	f = f.WithSearch(ctx.QueryParam("search"))
	return f
}

// bindLimit reads a positive `limit` query param, def when missing.
func bindLimit(ctx echo.Context, def int) (int, error) {
	val := ctx.QueryParam(limitParam)
	if val == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return 0, errBadParam
	}
	return limit, nil
}

// bindFile opens the uploaded file of a multipart field. It returns nil when the field is missing.
// The caller closes the returned file.
func bindFile(ctx echo.Context, field string) (*core.File, io.Closer, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrapf(err, "reading %s", field)
	}
	return openFile(fh)
}

func openFile(fh *multipart.FileHeader) (*core.File, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening uploaded file")
	}
	return &core.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}
