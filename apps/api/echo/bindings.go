package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/report"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

var (
	orderingParam   = "ordering"
	errInvalidValue = "invalid value"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, dropping the fields not in allowed.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
}

// queryParser collects the errors of the query params it parses.
type queryParser struct {
	ctx  echo.Context
	errs []core.FieldError
}

func (p *queryParser) string(name string) string {
	return p.ctx.QueryParam(name)
}

func (p *queryParser) bool(name string) *bool {
	raw := p.ctx.QueryParam(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, core.FieldError{Field: name, Error: errInvalidValue})
		return nil
	}
	return &b
}

func (p *queryParser) int(name string) int {
	raw := p.ctx.QueryParam(name)
	if raw == "" {
		return 0
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, core.FieldError{Field: name, Error: errInvalidValue})
	}
	return i
}

// time parses RFC3339 timestamps, and plain dates as midnight UTC.
func (p *queryParser) time(name string) time.Time {
	raw := p.ctx.QueryParam(name)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	p.errs = append(p.errs, core.FieldError{Field: name, Error: errInvalidValue})
	return time.Time{}
}

func (p *queryParser) err() error {
	if len(p.errs) > 0 {
		return core.NewValidationError(nil, p.errs...)
	}
	return nil
}

func bindUserFilter(ctx echo.Context) (*user.QueryFilter, error) {
	p := &queryParser{ctx: ctx}
	filter := &user.QueryFilter{
		Search:      p.string("search"),
		Roles:       ctx.QueryParams()["role"],
		Department:  p.string("department"),
		IsActive:    p.bool("is_active"),
		CreatedFrom: p.time("created_from"),
		CreatedTo:   p.time("created_to"),
	}
	return filter, p.err()
}

func bindSubjectFilter(ctx echo.Context) (*subject.QueryFilter, error) {
	p := &queryParser{ctx: ctx}
	filter := &subject.QueryFilter{
		Search:     p.string("search"),
		Department: p.string("department"),
		Semester:   p.int("semester"),
		FacultyID:  p.string("faculty_id"),
		IsActive:   p.bool("is_active"),
	}
	return filter, p.err()
}

func bindFeedbackFilter(ctx echo.Context) *feedback.QueryFilter {
	return &feedback.QueryFilter{
		StudentID:  ctx.QueryParam("student_id"),
		SubjectID:  ctx.QueryParam("subject_id"),
		FacultyID:  ctx.QueryParam("faculty_id"),
		Department: ctx.QueryParam("department"),
		Term:       ctx.QueryParam("term"),
	}
}

func bindReportFilter(ctx echo.Context) report.Filter {
	return report.Filter{
		Department: ctx.QueryParam("department"),
		FacultyID:  ctx.QueryParam("faculty_id"),
		SubjectID:  ctx.QueryParam("subject_id"),
		Term:       ctx.QueryParam("term"),
	}
}
