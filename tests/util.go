package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
	inmemdb "github.com/trezcool/maoni/storage/database/inmem"
)

func OpenDB(t *testing.T) *inmemdb.DB {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

func ResetDB(t *testing.T, db *inmemdb.DB) {
	if err := db.Reset(); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateMember creates an active member of a department (a student, faculty, HOD...).
func CreateMember(t *testing.T, repo user.Repository, name, uname, dept string, semester int, roles ...string) user.User {
	tstamp := time.Now().UTC()
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      uname + "@test.ac",
		Department: dept,
		Semester:   semester,
		Roles:      roles,
		IsActive:   true,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo subject.Repository, code, name, dept string, semester int, facultyID string) subject.Subject {
	tstamp := time.Now().UTC()
	subj := subject.Subject{
		Code:       code,
		Name:       name,
		Department: dept,
		Semester:   semester,
		Credits:    3,
		FacultyID:  facultyID,
		IsActive:   true,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	subj, err := repo.CreateSubject(context.Background(), subj)
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return subj
}

// CreateFeedback records the feedback of student on subj as if it was submitted at createdAt (now by default).
func CreateFeedback(
	t *testing.T,
	repo feedback.Repository,
	student user.User,
	subj subject.Subject,
	term string,
	ratings feedback.Ratings,
	comment string,
	createdAt ...time.Time,
) feedback.Feedback {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	fb := feedback.Feedback{
		StudentID:  student.ID,
		SubjectID:  subj.ID,
		FacultyID:  subj.FacultyID,
		Department: subj.Department,
		Term:       term,
		Ratings:    ratings,
		Comment:    comment,
		CreatedAt:  tstamp,
	}
	fb, err := repo.CreateFeedback(context.Background(), fb)
	if err != nil {
		t.Fatalf("CreateFeedback() failed: %v", err)
	}
	return fb
}

func Ratings(c, k, e, p, a int) feedback.Ratings {
	return feedback.Ratings{Clarity: c, Knowledge: k, Engagement: e, Punctuality: p, Assessment: a}
}
