package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
)

const feedbackColumns = `id, student_id, subject_id, faculty_id, department, term, clarity, knowledge, engagement, punctuality, assessment, comment, created_at`

var feedbackUniqueIndexes = map[string]error{
	"feedback_student_subject_term_key": feedback.ErrAlreadySubmitted,
}

type feedbackRow struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	SubjectID   string      `db:"subject_id"`
	FacultyID   null.String `db:"faculty_id"`
	Department  string      `db:"department"`
	Term        string      `db:"term"`
	Clarity     int         `db:"clarity"`
	Knowledge   int         `db:"knowledge"`
	Engagement  int         `db:"engagement"`
	Punctuality int         `db:"punctuality"`
	Assessment  int         `db:"assessment"`
	Comment     string      `db:"comment"`
	CreatedAt   time.Time   `db:"created_at"`
}

func toFeedbackRow(fb feedback.Feedback) feedbackRow {
	return feedbackRow{
		ID:          fb.ID,
		StudentID:   fb.StudentID,
		SubjectID:   fb.SubjectID,
		FacultyID:   null.NewString(fb.FacultyID, fb.FacultyID != ""),
		Department:  fb.Department,
		Term:        fb.Term,
		Clarity:     fb.Ratings.Clarity,
		Knowledge:   fb.Ratings.Knowledge,
		Engagement:  fb.Ratings.Engagement,
		Punctuality: fb.Ratings.Punctuality,
		Assessment:  fb.Ratings.Assessment,
		Comment:     fb.Comment,
		CreatedAt:   fb.CreatedAt.UTC(),
	}
}

func (r feedbackRow) feedback() feedback.Feedback {
	return feedback.Feedback{
		ID:         r.ID,
		StudentID:  r.StudentID,
		SubjectID:  r.SubjectID,
		FacultyID:  r.FacultyID.String,
		Department: r.Department,
		Term:       r.Term,
		Ratings: feedback.Ratings{
			Clarity:     r.Clarity,
			Knowledge:   r.Knowledge,
			Engagement:  r.Engagement,
			Punctuality: r.Punctuality,
			Assessment:  r.Assessment,
		},
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type feedbackRepository struct {
	db *sqlx.DB
}

var _ feedback.Repository = (*feedbackRepository)(nil)

func NewFeedbackRepository(db *sqlx.DB) feedback.Repository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	fb.ID = uuid.New().String()
	q := `INSERT INTO feedback (` + feedbackColumns + `) VALUES (:id, :student_id, :subject_id, :faculty_id, :department, :term,
		:clarity, :knowledge, :engagement, :punctuality, :assessment, :comment, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toFeedbackRow(fb)); err != nil {
		return feedback.Feedback{}, trapUniqueViolation(err, feedbackUniqueIndexes, "inserting feedback")
	}
	return fb, nil
}

func (repo *feedbackRepository) QueryFeedback(ctx context.Context, filter *feedback.QueryFilter, ordering []core.DBOrdering) ([]feedback.Feedback, error) {
	var w where
	if filter != nil {
		if filter.StudentID != "" {
			w.add("student_id::text = ?", filter.StudentID)
		}
		if filter.SubjectID != "" {
			w.add("subject_id::text = ?", filter.SubjectID)
		}
		if filter.FacultyID != "" {
			w.add("faculty_id::text = ?", filter.FacultyID)
		}
		if filter.Department != "" {
			w.add("department = ?", filter.Department)
		}
		if filter.Term != "" {
			w.add("term = ?", filter.Term)
		}
	}

	q := repo.db.Rebind(`SELECT ` + feedbackColumns + ` FROM feedback` + w.String() + orderBy(ordering, "created_at DESC"))
	var rows []feedbackRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}

	fbs := make([]feedback.Feedback, 0, len(rows))
	for _, r := range rows {
		fbs = append(fbs, r.feedback())
	}
	return fbs, nil
}

func (repo *feedbackRepository) GetFeedback(ctx context.Context, id string) (feedback.Feedback, error) {
	if !isUUID(id) {
		return feedback.Feedback{}, feedback.ErrNotFound
	}
	var row feedbackRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id); err != nil {
		return feedback.Feedback{}, trapNoRowsErr(err, feedback.ErrNotFound, "finding feedback by ID")
	}
	return row.feedback(), nil
}

func (repo *feedbackRepository) DeleteFeedback(ctx context.Context, id string) error {
	if !isUUID(id) {
		return feedback.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting feedback")
	}
	if cnt == 0 {
		return feedback.ErrNotFound
	}
	return nil
}
