package subject

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("subject not found")
	ErrCodeExists = errors.New("a subject with this code already exists")

	errInvalidFaculty = "must reference an active faculty member"
)

type (
	Repository interface {
		// CheckUniqueness returns ErrCodeExists when another subject (not in excludedIDs) has the same code.
		CheckUniqueness(ctx context.Context, code string, excludedIDs ...string) error
		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, code string, excluded ...Subject) error
		// CheckFaculty checks that id (if set) references an active faculty member.
		CheckFaculty(ctx context.Context, id string) error
		Create(ctx context.Context, actor user.User, ns NewSubject) (Subject, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		GetByID(ctx context.Context, id string) (Subject, error)
		Update(ctx context.Context, actor user.User, id string, us UpdateSubject) (Subject, error)
		Delete(ctx context.Context, actor user.User, id string) error
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(usrSvc, "usrSvc"),
	).CheckAndPanic()

	return &service{repo: repo, usrSvc: usrSvc}
}

func (svc *service) CheckUniqueness(ctx context.Context, code string, excluded ...Subject) error {
	ids := make([]string, 0, len(excluded))
	for _, s := range excluded {
		ids = append(ids, s.ID)
	}

	if err := svc.repo.CheckUniqueness(ctx, code, ids...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "checking subject uniqueness")
	}
	return nil
}

func (svc *service) CheckFaculty(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	fac, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "faculty_id", Error: errInvalidFaculty})
		}
		return errors.Wrap(err, "finding faculty by ID")
	}
	if !fac.IsActive || !fac.IsFaculty() {
		return core.NewValidationError(nil, core.FieldError{Field: "faculty_id", Error: errInvalidFaculty})
	}
	return nil
}

// Create creates a subject. Admins may create subjects of any department, HODs only of their own.
func (svc *service) Create(ctx context.Context, actor user.User, ns NewSubject) (Subject, error) {
	if !actor.CanManageDepartment(ns.Department) {
		return Subject{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	subj := Subject{
		Code:       ns.Code,
		Name:       ns.Name,
		Department: ns.Department,
		Semester:   ns.Semester,
		Credits:    ns.Credits,
		FacultyID:  ns.FacultyID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateSubject(ctx, subj)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

// Update saves the validated UpdateSubject. HODs can neither edit subjects of other departments
// nor move a subject out of their department.
func (svc *service) Update(ctx context.Context, actor user.User, id string, us UpdateSubject) (Subject, error) {
	orig, err := svc.GetByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}

	subj := us.apply(orig)
	if !actor.CanManageDepartment(orig.Department) || !actor.CanManageDepartment(subj.Department) {
		return Subject{}, core.ErrPermissionDenied
	}

	subj.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, subj)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	if !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteSubject(ctx, id)
}
