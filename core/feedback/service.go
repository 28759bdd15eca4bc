package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("feedback not found")
	ErrAlreadySubmitted = errors.New("feedback already submitted for this subject and term")
	ErrClosed           = core.NewPermissionError("feedback submission is closed")
	ErrStudentsOnly     = core.NewPermissionError("only students can submit feedback")
)

type (
	Repository interface {
		// CreateFeedback returns ErrAlreadySubmitted when the student already rated the subject for the term.
		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		QueryFeedback(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Feedback, error)
		GetFeedback(ctx context.Context, id string) (Feedback, error)
		DeleteFeedback(ctx context.Context, id string) error
	}

	Service interface {
		Submit(ctx context.Context, student user.User, nf NewFeedback) (Feedback, error)
		// Query returns the feedback viewer may see among the ones matching filter.
		Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Feedback, error)
		Get(ctx context.Context, viewer user.User, id string) (Feedback, error)
		Delete(ctx context.Context, viewer user.User, id string) error
		// Pending returns the subjects student still has to rate for term.
		Pending(ctx context.Context, student user.User, term string) ([]subject.Subject, error)
	}

	service struct {
		repo    Repository
		subjSvc subject.Service
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, subjSvc subject.Service, conf *core.Config) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(subjSvc, "subjSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &service{repo: repo, subjSvc: subjSvc, conf: conf}
}

func subjectErr(msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: msg})
}

// Submit records the feedback of student on a subject of their department (and semester) for the current term.
// The faculty & department are copied from the subject at submission time.
func (svc *service) Submit(ctx context.Context, student user.User, nf NewFeedback) (Feedback, error) {
	if !student.IsStudent() {
		return Feedback{}, ErrStudentsOnly
	}
	if !svc.conf.Feedback.Open {
		return Feedback{}, ErrClosed
	}
	if term := svc.conf.CurrentTerm(); nf.Term != term {
		return Feedback{}, core.NewValidationError(nil, core.FieldError{
			Field: "term",
			Error: fmt.Sprintf("feedback is only accepted for the current term (%s)", term),
		})
	}

	subj, err := svc.subjSvc.GetByID(ctx, nf.SubjectID)
	if err != nil {
		if core.IsNotFound(err) {
			return Feedback{}, subjectErr("subject not found")
		}
		return Feedback{}, errors.Wrap(err, "finding subject by ID")
	}
	switch {
	case !subj.IsActive:
		return Feedback{}, subjectErr("subject is not active")
	case !subj.HasFaculty():
		return Feedback{}, subjectErr("subject has no faculty assigned")
	case subj.Department != student.Department:
		return Feedback{}, subjectErr("subject is not offered to your department")
	case student.Semester != 0 && subj.Semester != student.Semester:
		return Feedback{}, subjectErr("subject is not offered in your semester")
	}

	fb := Feedback{
		StudentID:  student.ID,
		SubjectID:  subj.ID,
		FacultyID:  subj.FacultyID,
		Department: subj.Department,
		Term:       nf.Term,
		Ratings:    nf.Ratings,
		Comment:    nf.Comment,
		CreatedAt:  time.Now().UTC(),
	}
	fb, err = svc.repo.CreateFeedback(ctx, fb)
	if err != nil {
		if errors.Cause(err) == ErrAlreadySubmitted {
			return Feedback{}, subjectErr(ErrAlreadySubmitted.Error())
		}
		return Feedback{}, errors.Wrap(err, "creating feedback")
	}
	return fb, nil
}

func (svc *service) Query(ctx context.Context, viewer user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Feedback, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	if err := Scope(viewer, filter); err != nil {
		return nil, err
	}

	fbs, err := svc.repo.QueryFeedback(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	for i := range fbs {
		fbs[i] = Anonymize(viewer, fbs[i])
	}
	return fbs, nil
}

func (svc *service) Get(ctx context.Context, viewer user.User, id string) (Feedback, error) {
	fb, err := svc.repo.GetFeedback(ctx, id)
	if err != nil {
		return Feedback{}, err
	}
	if !CanView(viewer, fb) {
		return Feedback{}, ErrNotFound
	}
	return Anonymize(viewer, fb), nil
}

func (svc *service) Delete(ctx context.Context, viewer user.User, id string) error {
	if !viewer.IsAdmin() {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteFeedback(ctx, id)
}

func (svc *service) Pending(ctx context.Context, student user.User, term string) ([]subject.Subject, error) {
	if !student.IsStudent() {
		return nil, ErrStudentsOnly
	}
	if student.Department == "" {
		return []subject.Subject{}, nil
	}
	if term = core.CleanString(term, true /* lower */); term == "" {
		term = svc.conf.CurrentTerm()
	}

	active := true
	subjects, err := svc.subjSvc.Query(
		ctx,
		&subject.QueryFilter{Department: student.Department, Semester: student.Semester, IsActive: &active},
		[]core.DBOrdering{{Field: "code", Ascending: true}},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}

	submitted, err := svc.repo.QueryFeedback(ctx, &QueryFilter{StudentID: student.ID, Term: term}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	done := make(map[string]bool, len(submitted))
	for _, fb := range submitted {
		done[fb.SubjectID] = true
	}

	pending := make([]subject.Subject, 0, len(subjects))
	for _, subj := range subjects {
		if subj.HasFaculty() && !done[subj.ID] {
			pending = append(pending, subj)
		}
	}
	return pending, nil
}
