package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/uninotes/core/academic"
)

type academicApi struct {
	svc *academic.Service
}

func registerAcademicAPI(g *echo.Group, deps *Deps) {
	api := academicApi{svc: deps.AcademicSvc}

	g.GET("/faculties", api.faculties)
	g.GET("/faculties/:id/prodi", api.prodis)
	g.GET("/semesters", api.semesters)
	g.GET("/courses", api.courses)
	g.GET("/courses/:id", api.course)
}

func (api *academicApi) faculties(ctx echo.Context) error {
	faculties, err := api.svc.Faculties(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, faculties)
}

func (api *academicApi) prodis(ctx echo.Context) error {
	prodis, err := api.svc.Prodis(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prodis)
}

func (api *academicApi) semesters(ctx echo.Context) error {
	semesters, err := api.svc.Semesters(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, semesters)
}

// courses filters with the `faculty`, `prodi`, `semester` and `search` query params.
func (api *academicApi) courses(ctx echo.Context) error {
	courses, err := api.svc.Courses(ctx.Request().Context(), bindFilter(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *academicApi) course(ctx echo.Context) error {
	c, err := api.svc.Course(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}
