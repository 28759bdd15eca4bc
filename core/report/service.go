package report

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

const maxComments = 100

type (
	Repository interface {
		// Summaries aggregates the feedback matching filter by groupBy, ordered by key. Labels are left empty.
		Summaries(ctx context.Context, groupBy GroupBy, filter Filter) ([]Summary, error)
		Distribution(ctx context.Context, filter Filter) (Distribution, error)
		// Comments returns the latest non-empty comments of the feedback matching filter.
		Comments(ctx context.Context, filter Filter, limit int) ([]Comment, error)
		// CountUsers counts the active users per role, optionally in a department.
		CountUsers(ctx context.Context, department string) (map[string]int, error)
		// CountSubjects counts the active subjects, optionally of a department and/or a faculty.
		CountSubjects(ctx context.Context, department, facultyID string) (int, error)
	}

	Service interface {
		Summaries(ctx context.Context, viewer user.User, groupBy GroupBy, filter Filter) ([]Summary, error)
		SubjectReport(ctx context.Context, viewer user.User, subjectID, term string) (SubjectReport, error)
		Dashboard(ctx context.Context, viewer user.User) (Dashboard, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		subjSvc subject.Service
		fbSvc   feedback.Service
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrSvc user.Service,
	subjSvc subject.Service,
	fbSvc feedback.Service,
	conf *core.Config,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrSvc, "usrSvc"),
		vala.IsNotNil(subjSvc, "subjSvc"),
		vala.IsNotNil(fbSvc, "fbSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &service{repo: repo, usrSvc: usrSvc, subjSvc: subjSvc, fbSvc: fbSvc, conf: conf}
}

func (svc *service) labeler(ctx context.Context) Labeler {
	return func(groupBy GroupBy, key string) string {
		switch groupBy {
		case ByFaculty:
			if key == "" {
				return "Unassigned"
			}
			if usr, err := svc.usrSvc.GetByID(ctx, key); err == nil && usr.Name != "" {
				return usr.Name
			}
		case BySubject:
			if subj, err := svc.subjSvc.GetByID(ctx, key); err == nil {
				return subj.Code + " - " + subj.Name
			}
		}
		return key
	}
}

func (svc *service) Summaries(ctx context.Context, viewer user.User, groupBy GroupBy, filter Filter) ([]Summary, error) {
	if !groupBy.IsValid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "group_by", Error: "invalid value"})
	}
	cleanFilter(&filter)
	if err := Authorize(viewer, groupBy, &filter); err != nil {
		return nil, err
	}

	summaries, err := svc.repo.Summaries(ctx, groupBy, filter)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating feedback")
	}
	label := svc.labeler(ctx)
	for i := range summaries {
		summaries[i].Label = label(groupBy, summaries[i].Key)
	}
	return summaries, nil
}

// SubjectReport details the feedback of a subject for term (the current one by default).
func (svc *service) SubjectReport(ctx context.Context, viewer user.User, subjectID, term string) (SubjectReport, error) {
	subj, err := svc.subjSvc.GetByID(ctx, subjectID)
	if err != nil {
		return SubjectReport{}, err
	}
	if !CanViewSubject(viewer, subj) {
		if viewer.IsStaff() {
			return SubjectReport{}, core.ErrPermissionDenied
		}
		return SubjectReport{}, subject.ErrNotFound
	}

	filter := Filter{SubjectID: subj.ID, Term: core.CleanString(term, true /* lower */)}
	if filter.Term == "" {
		filter.Term = svc.conf.CurrentTerm()
	}
	if err = Authorize(viewer, BySubject, &filter); err != nil {
		return SubjectReport{}, err
	}

	rep := SubjectReport{
		Subject:  subj,
		Term:     filter.Term,
		Summary:  Summary{Key: subj.ID, Label: subj.Code + " - " + subj.Name},
		Comments: []Comment{},
	}

	summaries, err := svc.repo.Summaries(ctx, BySubject, filter)
	if err != nil {
		return SubjectReport{}, errors.Wrap(err, "aggregating feedback")
	}
	if len(summaries) > 0 {
		rep.Summary.Responses = summaries[0].Responses
		rep.Summary.Averages = summaries[0].Averages
	}

	if rep.Distribution, err = svc.repo.Distribution(ctx, filter); err != nil {
		return SubjectReport{}, errors.Wrap(err, "computing distribution")
	}

	comments, err := svc.repo.Comments(ctx, filter, maxComments)
	if err != nil {
		return SubjectReport{}, errors.Wrap(err, "querying comments")
	}
	if comments != nil {
		rep.Comments = comments
	}
	return rep, nil
}

func (svc *service) Dashboard(ctx context.Context, viewer user.User) (Dashboard, error) {
	term := svc.conf.CurrentTerm()
	dash := Dashboard{Term: term}

	var err error
	switch {
	case viewer.IsAdmin(), viewer.IsDean():
		dash.Role = user.RoleDean
		if viewer.IsAdmin() {
			dash.Role = user.RoleAdmin
		}
		err = svc.fillStaffDashboard(ctx, &dash, Filter{Term: term}, true)
	case viewer.IsHOD():
		dash.Role = user.RoleFacultyHOD
		dash.Department = viewer.Department
		if viewer.Department == "" {
			return Dashboard{}, core.ErrPermissionDenied
		}
		err = svc.fillStaffDashboard(ctx, &dash, Filter{Department: viewer.Department, Term: term}, true)
	case viewer.IsFaculty():
		dash.Role = user.RoleFaculty
		dash.Department = viewer.Department
		err = svc.fillStaffDashboard(ctx, &dash, Filter{FacultyID: viewer.ID, Term: term}, false)
	case viewer.IsStudent():
		dash.Role = user.RoleStudent
		dash.Department = viewer.Department
		err = svc.fillStudentDashboard(ctx, &dash, viewer)
	default:
		return Dashboard{}, core.ErrPermissionDenied
	}
	if err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func (svc *service) fillStaffDashboard(ctx context.Context, dash *Dashboard, filter Filter, withUsers bool) error {
	var err error
	if withUsers {
		if dash.Users, err = svc.repo.CountUsers(ctx, filter.Department); err != nil {
			return errors.Wrap(err, "counting users")
		}
	}
	if dash.Subjects, err = svc.repo.CountSubjects(ctx, filter.Department, filter.FacultyID); err != nil {
		return errors.Wrap(err, "counting subjects")
	}

	summaries, err := svc.repo.Summaries(ctx, ByTerm, filter)
	if err != nil {
		return errors.Wrap(err, "aggregating feedback")
	}
	if len(summaries) > 0 {
		dash.Responses = summaries[0].Responses
		dash.Overall = summaries[0].Averages.Overall
	}
	return nil
}

func (svc *service) fillStudentDashboard(ctx context.Context, dash *Dashboard, student user.User) error {
	submitted, err := svc.fbSvc.Query(ctx, student, &feedback.QueryFilter{Term: dash.Term}, nil)
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	pending, err := svc.fbSvc.Pending(ctx, student, dash.Term)
	if err != nil {
		return errors.Wrap(err, "querying pending subjects")
	}
	dash.Submitted = len(submitted)
	dash.Pending = len(pending)
	return nil
}

func cleanFilter(f *Filter) {
	f.Department = core.CleanCode(f.Department)
	f.FacultyID = core.CleanString(f.FacultyID, true /* lower */)
	f.SubjectID = core.CleanString(f.SubjectID, true /* lower */)
	f.Term = core.CleanString(f.Term, true /* lower */)
}
