package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core/report"
	"github.com/trezcool/maoni/core/user"
)

type reportApi struct {
	svc    report.Service
	usrSvc user.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := reportApi{
		svc:    opts.ReportSvc,
		usrSvc: opts.UserSvc,
	}

	rg := g.Group("/reports", jwt)
	rg.GET("/dashboard", api.dashboard)

	sg := rg.Group("", staffMiddleware(api.usrSvc))
	sg.GET("/departments", api.summaries(report.ByDepartment))
	sg.GET("/faculty", api.summaries(report.ByFaculty))
	sg.GET("/subjects", api.summaries(report.BySubject))
	sg.GET("/terms", api.summaries(report.ByTerm))
	sg.GET("/subjects/:id", api.subject)
}

func (api *reportApi) summaries(groupBy report.GroupBy) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return err
		}

		summaries, err := api.svc.Summaries(ctx.Request().Context(), ctxUsr, groupBy, bindReportFilter(ctx))
		if err != nil {
			return errors.Wrapf(err, "summarizing feedback by %s", groupBy)
		}
		if summaries == nil {
			summaries = []report.Summary{}
		}
		return ctx.JSON(http.StatusOK, summaries)
	}
}

func (api *reportApi) subject(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	rep, err := api.svc.SubjectReport(ctx.Request().Context(), ctxUsr, ctx.Param("id"), ctx.QueryParam("term"))
	if err != nil {
		return errors.Wrap(err, "reporting on subject")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) dashboard(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	dash, err := api.svc.Dashboard(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
