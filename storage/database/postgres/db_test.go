package pgrepos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/report"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var userCols = []string{
	"id", "name", "username", "email", "department", "registration_no", "semester",
	"is_active", "roles", "password_hash", "created_at", "updated_at", "last_login",
}

func TestUserRepository_GetUser(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	id := "0b4b6e4a-7a3c-4d5f-9a43-3f1b2d0c8e11"

	t.Run("invalid id", func(t *testing.T) {
		db, mock := newMockDB(t)
		_, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{ID: "1"})
		assert.Equal(t, user.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM "user" WHERE \(LOWER\(username\) = LOWER\(\$1\) OR LOWER\(email\) = LOWER\(\$1\)\)`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{UsernameOrEmail: "ghost"})
		assert.Equal(t, user.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows(userCols).
			AddRow(id, "Amani", "amani", nil, "CSE", "CS-042", 3, true, "{student:}", []byte("hash"), now, now, nil)
		mock.ExpectQuery(`SELECT .+ FROM "user" WHERE id = \$1`).WithArgs(id).WillReturnRows(rows)

		got, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{ID: id})
		require.NoError(t, err)
		assert.Equal(t, user.User{
			ID:             id,
			Name:           "Amani",
			Username:       "amani",
			Department:     "CSE",
			RegistrationNo: "CS-042",
			Semester:       3,
			IsActive:       true,
			Roles:          []string{user.RoleStudent},
			PasswordHash:   []byte("hash"),
			CreatedAt:      now,
			UpdatedAt:      now,
		}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_CreateUser(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{name: "ok"},
		{name: "duplicate username", dbErr: &pq.Error{Code: uniqueViolation, Constraint: "user_username_key"}, wantErr: user.ErrUsernameExists},
		{name: "duplicate email", dbErr: &pq.Error{Code: uniqueViolation, Constraint: "user_email_key"}, wantErr: user.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			exp := mock.ExpectExec(`INSERT INTO "user"`)
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			usr, err := NewUserRepository(db).CreateUser(ctx, user.User{Username: "amani", Email: "amani@test.com"})
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				require.NoError(t, err)
				assert.True(t, isUUID(usr.ID))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CheckUniqueness(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM "user" WHERE LOWER\(username\)`).
		WithArgs("amani", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM "user" WHERE LOWER\(email\)`).
		WithArgs("amani@test.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := NewUserRepository(db).CheckUniqueness(context.Background(), "amani", "amani@test.com")
	assert.Equal(t, user.ErrEmailExists, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepository_DeleteSubject(t *testing.T) {
	id := "5d2f1c9e-1b7a-4c1e-8e6f-2a9b7c3d4e5f"
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM subject WHERE id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewSubjectRepository(db).DeleteSubject(context.Background(), id)
	assert.Equal(t, subject.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepository_CreateFeedback(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO feedback`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "feedback_student_subject_term_key"})

	_, err := NewFeedbackRepository(db).CreateFeedback(context.Background(), feedback.Feedback{Term: "2025-fall"})
	assert.Equal(t, feedback.ErrAlreadySubmitted, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepository_QueryFeedback(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM feedback WHERE department = \$1 AND term = \$2 ORDER BY created_at DESC`).
		WithArgs("CSE", "2025-fall").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "subject_id", "faculty_id", "department", "term", "clarity", "knowledge", "engagement", "punctuality", "assessment", "comment", "created_at"}))

	fbs, err := NewFeedbackRepository(db).QueryFeedback(
		context.Background(),
		&feedback.QueryFilter{Department: "CSE", Term: "2025-fall"},
		nil,
	)
	require.NoError(t, err)
	assert.Empty(t, fbs)
	assert.NotNil(t, fbs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "default", want: " ORDER BY created_at DESC"},
		{
			name:     "text columns in byte order, ignoring case",
			ordering: []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "email"}},
			want:     ` ORDER BY LOWER(name) COLLATE "C" ASC, LOWER(email) COLLATE "C" DESC`,
		},
		{name: "other columns", ordering: []core.DBOrdering{{Field: "semester", Ascending: true}}, want: " ORDER BY semester ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering, "created_at DESC"))
		})
	}
}

func TestSubjectRepository_QuerySubjects_ordering(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM subject ORDER BY LOWER\(code\) COLLATE "C" DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewSubjectRepository(db).QuerySubjects(context.Background(), nil, []core.DBOrdering{{Field: "code"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_Summaries(t *testing.T) {
	db, mock := newMockDB(t)
	cols := []string{"key", "responses", "clarity", "knowledge", "engagement", "punctuality", "assessment", "overall"}
	mock.ExpectQuery(`SELECT department AS key, COUNT\(\*\) AS responses, .+ FROM feedback WHERE term = \$1 GROUP BY 1 ORDER BY department COLLATE "C"`).
		WithArgs("2025-fall").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("CSE", 3, 4.33, 4.0, 3.67, 4.0, 4.33, 4.07).
			AddRow("EEE", 1, 1.0, 2.0, 1.0, 2.0, 1.0, 1.4))

	got, err := NewReportRepository(db).Summaries(context.Background(), report.ByDepartment, report.Filter{Term: "2025-fall"})
	require.NoError(t, err)
	assert.Equal(t, []report.Summary{
		{Key: "CSE", Responses: 3, Averages: report.Averages{Clarity: 4.33, Knowledge: 4, Engagement: 3.67, Punctuality: 4, Assessment: 4.33, Overall: 4.07}},
		{Key: "EEE", Responses: 1, Averages: report.Averages{Clarity: 1, Knowledge: 2, Engagement: 1, Punctuality: 2, Assessment: 1, Overall: 1.4}},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_Distribution(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT ROUND\(.+\)::int AS score, COUNT\(\*\) AS count FROM feedback WHERE subject_id::text = \$1 GROUP BY 1`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"score", "count"}).AddRow(1, 2).AddRow(4, 5))

	got, err := NewReportRepository(db).Distribution(context.Background(), report.Filter{SubjectID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, report.Distribution{2, 0, 0, 5, 0}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_CountUsers(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT user_role AS role, COUNT\(\*\) AS count FROM "user", UNNEST\(roles\) user_role WHERE is_active AND department = \$1 GROUP BY 1`).
		WithArgs("CSE").
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).AddRow(user.RoleStudent, 40).AddRow(user.RoleFaculty, 6))

	got, err := NewReportRepository(db).CountUsers(context.Background(), "CSE")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{user.RoleStudent: 40, user.RoleFaculty: 6}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
