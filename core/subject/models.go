package subject

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maoni/core"
)

// Subject is a course taught in a department during a given semester.
type Subject struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Semester   int       `json:"semester"`
	Credits    int       `json:"credits"`
	FacultyID  string    `json:"faculty_id"` // empty when unassigned
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// HasFaculty reports whether a faculty member is assigned to the subject.
func (s Subject) HasFaculty() bool {
	return s.FacultyID != ""
}

type NewSubject struct {
	Code       string `json:"code" validate:"required,subjcode"`
	Name       string `json:"name" validate:"required,max=128"`
	Department string `json:"department" validate:"required,max=16,alphanum"`
	Semester   int    `json:"semester" validate:"required,min=1,max=12"`
	Credits    int    `json:"credits" validate:"min=0,max=10"`
	FacultyID  string `json:"faculty_id" validate:"omitempty,uuid"`
}

func (ns *NewSubject) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.Code = core.CleanCode(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.Department = core.CleanCode(ns.Department)
	ns.FacultyID = core.CleanString(ns.FacultyID, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if err := svc.CheckUniqueness(ctx, ns.Code); err != nil {
		return err
	}
	return svc.CheckFaculty(ctx, ns.FacultyID)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// An empty FacultyID unassigns the faculty.
type UpdateSubject struct {
	Code       string  `json:"code" validate:"omitempty,subjcode"`
	Name       string  `json:"name" validate:"omitempty,max=128"`
	Department *string `json:"department" validate:"omitempty,min=1,max=16,alphanum"`
	Semester   *int    `json:"semester" validate:"omitempty,min=1,max=12"`
	Credits    *int    `json:"credits" validate:"omitempty,min=0,max=10"`
	FacultyID  *string `json:"faculty_id"`
	IsActive   *bool   `json:"is_active"`
}

func (us *UpdateSubject) Validate(ctx context.Context, orig Subject, validate *validator.Validate, svc Service) error {
	if code := core.CleanCode(us.Code); code != "" {
		us.Code = code
	} else {
		us.Code = orig.Code
	}
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if us.Department != nil {
		dept := core.CleanCode(*us.Department)
		us.Department = &dept
	}

	var facultyID string
	if us.FacultyID != nil {
		facultyID = core.CleanString(*us.FacultyID, true /* lower */)
		us.FacultyID = &facultyID
	}

	if err := validate.Struct(us); err != nil {
		return err
	}

	if err := svc.CheckUniqueness(ctx, us.Code, orig); err != nil {
		return err
	}
	if us.FacultyID != nil && facultyID != orig.FacultyID {
		return svc.CheckFaculty(ctx, facultyID)
	}
	return nil
}

// apply returns orig updated with the set fields.
func (us *UpdateSubject) apply(orig Subject) Subject {
	subj := orig
	subj.Code = us.Code
	subj.Name = us.Name
	if us.Department != nil {
		subj.Department = *us.Department
	}
	if us.Semester != nil {
		subj.Semester = *us.Semester
	}
	if us.Credits != nil {
		subj.Credits = *us.Credits
	}
	if us.FacultyID != nil {
		subj.FacultyID = *us.FacultyID
	}
	if us.IsActive != nil {
		subj.IsActive = *us.IsActive
	}
	return subj
}

type QueryFilter struct {
	Search     string // code or name
	Department string
	Semester   int
	FacultyID  string
	IsActive   *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanCode(qf.Department)
	qf.FacultyID = core.CleanString(qf.FacultyID, true /* lower */)
}

// Match reports whether subj satisfies the filter (used by in-memory storage).
func (qf *QueryFilter) Match(subj Subject) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(subj.Code), s) || strings.Contains(strings.ToLower(subj.Name), s)) {
			return false
		}
	}
	if qf.Department != "" && subj.Department != qf.Department {
		return false
	}
	if qf.Semester != 0 && subj.Semester != qf.Semester {
		return false
	}
	if qf.FacultyID != "" && subj.FacultyID != qf.FacultyID {
		return false
	}
	if qf.IsActive != nil && subj.IsActive != *qf.IsActive {
		return false
	}
	return true
}

// OrderingFields are the fields subjects can be ordered by.
var OrderingFields = []string{"code", "name", "department", "semester", "credits", "is_active", "created_at", "updated_at"}
