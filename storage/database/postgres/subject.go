package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/subject"
)

const subjectColumns = `id, code, name, department, semester, credits, faculty_id, is_active, created_at, updated_at`

var subjectUniqueIndexes = map[string]error{
	"subject_code_key": subject.ErrCodeExists,
}

type subjectRow struct {
	ID         string      `db:"id"`
	Code       string      `db:"code"`
	Name       string      `db:"name"`
	Department string      `db:"department"`
	Semester   int         `db:"semester"`
	Credits    int         `db:"credits"`
	FacultyID  null.String `db:"faculty_id"`
	IsActive   bool        `db:"is_active"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func toSubjectRow(subj subject.Subject) subjectRow {
	return subjectRow{
		ID:         subj.ID,
		Code:       subj.Code,
		Name:       subj.Name,
		Department: subj.Department,
		Semester:   subj.Semester,
		Credits:    subj.Credits,
		FacultyID:  null.NewString(subj.FacultyID, subj.FacultyID != ""),
		IsActive:   subj.IsActive,
		CreatedAt:  subj.CreatedAt.UTC(),
		UpdatedAt:  subj.UpdatedAt.UTC(),
	}
}

func (r subjectRow) subject() subject.Subject {
	return subject.Subject{
		ID:         r.ID,
		Code:       r.Code,
		Name:       r.Name,
		Department: r.Department,
		Semester:   r.Semester,
		Credits:    r.Credits,
		FacultyID:  r.FacultyID.String,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *sqlx.DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) CheckUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	if excludedIDs == nil {
		excludedIDs = []string{}
	}
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM subject WHERE code = $1 AND NOT (id::text = ANY($2)))`
	if err := repo.db.GetContext(ctx, &exists, q, code, pq.Array(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking subject uniqueness")
	}
	if exists {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	subj.ID = uuid.New().String()
	q := `INSERT INTO subject (` + subjectColumns + `) VALUES (:id, :code, :name, :department, :semester, :credits, :faculty_id, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toSubjectRow(subj)); err != nil {
		return subject.Subject{}, trapUniqueViolation(err, subjectUniqueIndexes, "inserting subject")
	}
	return subj, nil
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(code ILIKE ? OR name ILIKE ?)", val, val)
		}
		if filter.Department != "" {
			w.add("department = ?", filter.Department)
		}
		if filter.Semester != 0 {
			w.add("semester = ?", filter.Semester)
		}
		if filter.FacultyID != "" {
			w.add("faculty_id::text = ?", filter.FacultyID)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	q := repo.db.Rebind(`SELECT ` + subjectColumns + ` FROM subject` + w.String() + orderBy(ordering, "code ASC"))
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}

	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo *subjectRepository) GetSubject(ctx context.Context, id string) (subject.Subject, error) {
	if !isUUID(id) {
		return subject.Subject{}, subject.ErrNotFound
	}
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+subjectColumns+` FROM subject WHERE id = $1`, id); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject by ID")
	}
	return row.subject(), nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	q := `UPDATE subject SET code = :code, name = :name, department = :department, semester = :semester,
		credits = :credits, faculty_id = :faculty_id, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toSubjectRow(subj))
	if err != nil {
		return subject.Subject{}, trapUniqueViolation(err, subjectUniqueIndexes, "updating subject")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return subj, nil
}

// DeleteSubject deletes a subject. Its feedback is deleted by the DB.
func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	if !isUUID(id) {
		return subject.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if cnt == 0 {
		return subject.ErrNotFound
	}
	return nil
}
