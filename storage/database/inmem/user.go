package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// copyUser returns a copy of usr that shares no memory with it.
func copyUser(usr user.User) *user.User {
	u := usr
	if usr.Roles != nil {
		u.Roles = append([]string{}, usr.Roles...)
	}
	if usr.PasswordHash != nil {
		u.PasswordHash = append([]byte{}, usr.PasswordHash...)
	}
	return &u
}

func checkUserUniqueness(txn *memdb.Txn, username, email string, excludedIDs ...string) error {
	if username != "" {
		raw, err := txn.First(usersTable, usernameIndex, strings.ToLower(username))
		if err != nil {
			return err
		}
		if raw != nil && !isExcluded(raw.(*user.User).ID, excludedIDs) {
			return user.ErrUsernameExists
		}
	}
	if email != "" {
		raw, err := txn.First(usersTable, emailIndex, strings.ToLower(email))
		if err != nil {
			return err
		}
		if raw != nil && !isExcluded(raw.(*user.User).ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()
	return checkUserUniqueness(txn, username, email, excludedIDs...)
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	if err := checkUserUniqueness(txn, usr.Username, usr.Email); err != nil {
		return user.User{}, err
	}
	usr.ID = uuid.New().String()
	if err := txn.Insert(usersTable, copyUser(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	txn.Commit()
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	objs, err := all(txn, usersTable)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(objs))
	for _, obj := range objs {
		if usr := *copyUser(*obj.(*user.User)); filter.Match(usr) {
			users = append(users, usr)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	orderBy(users, ordering, func(i, j int, field string) int {
		a, b := users[i], users[j]
		switch field {
		case "name":
			return cmpString(a.Name, b.Name)
		case "username":
			return cmpString(a.Username, b.Username)
		case "email":
			return cmpString(a.Email, b.Email)
		case "department":
			return cmpString(a.Department, b.Department)
		case "is_active":
			return cmpBool(a.IsActive, b.IsActive)
		case "created_at":
			return cmpTime(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			return cmpTime(a.UpdatedAt, b.UpdatedAt)
		case "last_login":
			return cmpTime(a.LastLogin, b.LastLogin)
		}
		return 0
	})
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	txn := repo.db.mem.Txn(false)
	defer txn.Abort()

	var raw interface{}
	var err error
	switch {
	case filter.ID != "":
		raw, err = txn.First(usersTable, idIndex, filter.ID)
	case filter.Username != "":
		raw, err = txn.First(usersTable, usernameIndex, strings.ToLower(filter.Username))
	case filter.Email != "":
		raw, err = txn.First(usersTable, emailIndex, strings.ToLower(filter.Email))
	case filter.UsernameOrEmail != "":
		raw, err = txn.First(usersTable, usernameIndex, strings.ToLower(filter.UsernameOrEmail))
		if err == nil && raw == nil {
			raw, err = txn.First(usersTable, emailIndex, strings.ToLower(filter.UsernameOrEmail))
		}
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user")
	}
	if raw == nil {
		return user.User{}, user.ErrNotFound
	}
	return *copyUser(*raw.(*user.User)), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(usersTable, idIndex, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user")
	}
	if raw == nil {
		return user.User{}, user.ErrNotFound
	}
	if err = checkUserUniqueness(txn, usr.Username, usr.Email, usr.ID); err != nil {
		return user.User{}, err
	}
	if err = txn.Insert(usersTable, copyUser(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	txn.Commit()
	return usr, nil
}

// DeleteUsersByID deletes the users with their feedback, and unassigns them from subjects & feedback they teach.
func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) (int, error) {
	txn := repo.db.mem.Txn(true)
	defer txn.Abort()

	var cnt int
	for _, id := range ids {
		raw, err := txn.First(usersTable, idIndex, id)
		if err != nil {
			return 0, errors.Wrap(err, "finding user")
		}
		if raw == nil {
			continue
		}
		if err = txn.Delete(usersTable, raw); err != nil {
			return 0, errors.Wrap(err, "deleting user")
		}
		cnt++

		if _, err = txn.DeleteAll(feedbackTable, studentIndex, id); err != nil {
			return 0, errors.Wrap(err, "deleting user feedback")
		}
		if err = unassignFaculty(txn, id); err != nil {
			return 0, err
		}
	}
	txn.Commit()
	return cnt, nil
}

func unassignFaculty(txn *memdb.Txn, facultyID string) error {
	subjects, err := getAll(txn, subjectsTable, facultyIndex, facultyID)
	if err != nil {
		return errors.Wrap(err, "finding faculty subjects")
	}
	for _, obj := range subjects {
		subj := *obj.(*subject.Subject)
		subj.FacultyID = ""
		if err = txn.Insert(subjectsTable, &subj); err != nil {
			return errors.Wrap(err, "unassigning subject faculty")
		}
	}

	fbs, err := getAll(txn, feedbackTable, facultyIndex, facultyID)
	if err != nil {
		return errors.Wrap(err, "finding faculty feedback")
	}
	for _, obj := range fbs {
		fb := *obj.(*feedback.Feedback)
		fb.FacultyID = ""
		if err = txn.Insert(feedbackTable, &fb); err != nil {
			return errors.Wrap(err, "unassigning feedback faculty")
		}
	}
	return nil
}
