package feedback

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maoni/core"
)

// Ratings are the scores (1 to 5) a student gives a subject's faculty.
type Ratings struct {
	Clarity     int `json:"clarity" validate:"required,min=1,max=5"`
	Knowledge   int `json:"knowledge" validate:"required,min=1,max=5"`
	Engagement  int `json:"engagement" validate:"required,min=1,max=5"`
	Punctuality int `json:"punctuality" validate:"required,min=1,max=5"`
	Assessment  int `json:"assessment" validate:"required,min=1,max=5"`
}

// Overall is the mean of all ratings.
func (r Ratings) Overall() float64 {
	return float64(r.Clarity+r.Knowledge+r.Engagement+r.Punctuality+r.Assessment) / 5
}

type Feedback struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id,omitempty"` // only visible to its author & admins
	SubjectID  string    `json:"subject_id"`
	FacultyID  string    `json:"faculty_id"`
	Department string    `json:"department"`
	Term       string    `json:"term"`
	Ratings    Ratings   `json:"ratings"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// NewFeedback contains information needed to submit a Feedback.
type NewFeedback struct {
	SubjectID string  `json:"subject_id" validate:"required,uuid"`
	Term      string  `json:"term" validate:"omitempty,term"`
	Ratings   Ratings `json:"ratings"`
	Comment   string  `json:"comment"`
}

// Validate cleans & validates the data. An empty Term defaults to the current term.
func (nf *NewFeedback) Validate(validate *validator.Validate, conf *core.Config) error {
	nf.SubjectID = core.CleanString(nf.SubjectID, true /* lower */)
	nf.Term = core.CleanString(nf.Term, true /* lower */)
	nf.Comment = core.CleanString(nf.Comment)
	if nf.Term == "" {
		nf.Term = conf.CurrentTerm()
	}

	if err := validate.Struct(nf); err != nil {
		return err
	}
	if maxLen := conf.Feedback.CommentMaxLen; maxLen > 0 && utf8.RuneCountInString(nf.Comment) > maxLen {
		return core.NewValidationError(nil, core.FieldError{
			Field: "comment",
			Error: fmt.Sprintf("comment must be a maximum of %d characters in length", maxLen),
		})
	}
	return nil
}

type QueryFilter struct {
	StudentID  string
	SubjectID  string
	FacultyID  string
	Department string
	Term       string
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID, true /* lower */)
	qf.SubjectID = core.CleanString(qf.SubjectID, true /* lower */)
	qf.FacultyID = core.CleanString(qf.FacultyID, true /* lower */)
	qf.Department = core.CleanCode(qf.Department)
	qf.Term = core.CleanString(qf.Term, true /* lower */)
}

// Match reports whether fb satisfies the filter (used by in-memory storage).
func (qf *QueryFilter) Match(fb Feedback) bool {
	if qf == nil {
		return true
	}
	return (qf.StudentID == "" || fb.StudentID == qf.StudentID) &&
		(qf.SubjectID == "" || fb.SubjectID == qf.SubjectID) &&
		(qf.FacultyID == "" || fb.FacultyID == qf.FacultyID) &&
		(qf.Department == "" || fb.Department == qf.Department) &&
		(qf.Term == "" || fb.Term == qf.Term)
}

// OrderingFields are the fields feedback can be ordered by.
var OrderingFields = []string{"term", "department", "created_at"}
