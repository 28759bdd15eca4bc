package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/maoni/core/feedback"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

const defaultSeedPassword = "Maoni@Seed2025"

type (
	seedUser struct {
		name, uname, dept string
		semester          int
		roles             []string
	}

	seedSubject struct {
		code, name, dept  string
		semester, credits int
		faculty           string // username
	}

	seedStats struct {
		users, subjects, feedback int
	}
)

var (
	seedUsers = []seedUser{
		{name: "Amani Dean", uname: "dean", roles: []string{user.RoleDean}},
		{name: "Baraka Otieno", uname: "cse_hod", dept: "CSE", roles: []string{user.RoleFaculty, user.RoleFacultyHOD}},
		{name: "Chausiku Mwangi", uname: "cse_faculty", dept: "CSE", roles: []string{user.RoleFaculty}},
		{name: "Daudi Kariuki", uname: "eee_hod", dept: "EEE", roles: []string{user.RoleFaculty, user.RoleFacultyHOD}},
		{name: "Eshe Njeri", uname: "eee_faculty", dept: "EEE", roles: []string{user.RoleFaculty}},
		{name: "Faraji Ouma", uname: "cse_student1", dept: "CSE", semester: 3, roles: []string{user.RoleStudent}},
		{name: "Gathoni Wanjiru", uname: "cse_student2", dept: "CSE", semester: 3, roles: []string{user.RoleStudent}},
		{name: "Hamisi Mutua", uname: "eee_student1", dept: "EEE", semester: 3, roles: []string{user.RoleStudent}},
		{name: "Imani Achieng", uname: "eee_student2", dept: "EEE", semester: 3, roles: []string{user.RoleStudent}},
	}

	seedSubjects = []seedSubject{
		{code: "CS201", name: "Data Structures", dept: "CSE", semester: 3, credits: 4, faculty: "cse_faculty"},
		{code: "CS203", name: "Operating Systems", dept: "CSE", semester: 3, credits: 3, faculty: "cse_hod"},
		{code: "EE201", name: "Circuit Theory", dept: "EEE", semester: 3, credits: 4, faculty: "eee_faculty"},
		{code: "EE203", name: "Signals and Systems", dept: "EEE", semester: 3, credits: 3, faculty: "eee_hod"},
	}

	seedComments = []string{"", "Clear explanations.", "More examples would help.", "Great lab sessions!"}
)

// seed loads sample data, skipping the users & subjects that already exist.
// Every sample student rates the subjects of their semester for the current term.
func (cli *commandLine) seed(pwd string) error {
	ctx := context.Background()
	now := time.Now().UTC()
	var stats seedStats

	users := make(map[string]user.User, len(seedUsers))
	for _, su := range seedUsers {
		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: su.uname})
		if err == user.ErrNotFound {
			usr = user.User{
				Name:       su.name,
				Username:   su.uname,
				Email:      su.uname + "@maoni.test",
				Department: su.dept,
				Semester:   su.semester,
				Roles:      su.roles,
				IsActive:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err = usr.SetPassword(pwd); err != nil {
				return err
			}
			usr, err = cli.usrRepo.CreateUser(ctx, usr)
			stats.users++
		}
		if err != nil {
			return errors.Wrapf(err, "seeding user %q", su.uname)
		}
		users[su.uname] = usr
	}

	var subjects []subject.Subject
	for _, ss := range seedSubjects {
		subj, err := cli.findSubject(ctx, ss.code)
		if err == subject.ErrNotFound {
			subj, err = cli.subjRepo.CreateSubject(ctx, subject.Subject{
				Code:       ss.code,
				Name:       ss.name,
				Department: ss.dept,
				Semester:   ss.semester,
				Credits:    ss.credits,
				FacultyID:  users[ss.faculty].ID,
				IsActive:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			stats.subjects++
		}
		if err != nil {
			return errors.Wrapf(err, "seeding subject %q", ss.code)
		}
		subjects = append(subjects, subj)
	}

	term := cli.conf.CurrentTerm()
	for i, su := range seedUsers {
		student := users[su.uname]
		if !student.IsStudent() {
			continue
		}
		for j, subj := range subjects {
			if subj.Department != student.Department || subj.Semester != student.Semester || !subj.HasFaculty() {
				continue
			}
			_, err := cli.fbRepo.CreateFeedback(ctx, feedback.Feedback{
				StudentID:  student.ID,
				SubjectID:  subj.ID,
				FacultyID:  subj.FacultyID,
				Department: subj.Department,
				Term:       term,
				Ratings:    seedRatings(i + j),
				Comment:    seedComments[(i+j)%len(seedComments)],
				CreatedAt:  now,
			})
			if errors.Cause(err) == feedback.ErrAlreadySubmitted {
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "seeding feedback of %q on %q", su.uname, subj.Code)
			}
			stats.feedback++
		}
	}

	fmt.Fprintf(cli.out, "seeded %d users, %d subjects & %d feedback (term %s)\n", stats.users, stats.subjects, stats.feedback, term)
	return nil
}

func (cli *commandLine) findSubject(ctx context.Context, code string) (subject.Subject, error) {
	subjects, err := cli.subjRepo.QuerySubjects(ctx, &subject.QueryFilter{Search: code}, nil)
	if err != nil {
		return subject.Subject{}, err
	}
	for _, subj := range subjects {
		if subj.Code == code {
			return subj, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

// seedRatings returns varied but deterministic ratings between 2 and 5.
func seedRatings(n int) feedback.Ratings {
	r := func(offset int) int { return 2 + (n+offset)%4 }
	return feedback.Ratings{Clarity: r(0), Knowledge: r(1), Engagement: r(2), Punctuality: r(3), Assessment: r(1)}
}
