package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

type feedbackApi struct {
	conf     *core.Config
	svc      feedback.Service
	usrSvc   user.Service
	validate *validator.Validate
	metrics  *metrics
}

func registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options, m *metrics) {
	api := feedbackApi{
		conf:     opts.Conf,
		svc:      opts.FeedbackSvc,
		usrSvc:   opts.UserSvc,
		validate: opts.Validate,
		metrics:  m,
	}

	fg := g.Group("/feedback", jwt)
	fg.POST("", api.submit)
	fg.GET("", api.query)
	fg.GET("/pending", api.pending)
	fg.GET("/:id", api.retrieve)
	fg.DELETE("/:id", api.destroy, adminMiddleware(api.usrSvc))
}

func (api *feedbackApi) submit(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if !ctxUsr.IsStudent() {
		return feedback.ErrStudentsOnly
	}

	var data feedback.NewFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err = data.Validate(api.validate, api.conf); err != nil {
		return err
	}

	fb, err := api.svc.Submit(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "submitting feedback")
	}
	api.metrics.feedbackSubmitted(fb.Department, fb.Term)
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *feedbackApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, feedback.OrderingFields...)

	fbs, err := api.svc.Query(ctx.Request().Context(), ctxUsr, bindFeedbackFilter(ctx), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if fbs == nil {
		fbs = []feedback.Feedback{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

// pending lists the subjects the student still has to rate for the `term` (the current one by default).
func (api *feedbackApi) pending(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	subjects, err := api.svc.Pending(ctx.Request().Context(), ctxUsr, ctx.QueryParam("term"))
	if err != nil {
		return errors.Wrap(err, "querying pending subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *feedbackApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	fb, err := api.svc.Get(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fb)
}

func (api *feedbackApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	return ctx.NoContent(http.StatusNoContent)
}
