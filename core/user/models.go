package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/maoni/core"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Dean
	RoleDean = "dean:"

	// Faculty
	RoleFaculty    = "faculty:"
	RoleFacultyHOD = "faculty:hod" // head of department

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin}
	DeanRoles    = []string{RoleDean}
	FacultyRoles = []string{RoleFaculty, RoleFacultyHOD}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		RoleAdmin:      30,
		RoleDean:       25,
		RoleFacultyHOD: 15,
		RoleFaculty:    11,
		RoleStudent:    1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Faculty", Value: RoleFaculty},
		{Name: "Head of Department", Value: RoleFacultyHOD},
		{Name: "Dean", Value: RoleDean},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, DeanRoles...)
	all = append(all, FacultyRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Department     string    `json:"department"`
	RegistrationNo string    `json:"registration_no"`
	Semester       int       `json:"semester"`
	IsActive       bool      `json:"is_active"`
	Roles          []string  `json:"roles"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.RoleStartsWith(RoleAdmin) }
func (u *User) IsDean() bool    { return u.RoleStartsWith(RoleDean) }
func (u *User) IsFaculty() bool { return u.RoleStartsWith(RoleFaculty) }
func (u *User) IsHOD() bool     { return u.HasRole(RoleFacultyHOD) }
func (u *User) IsStudent() bool { return u.RoleStartsWith(RoleStudent) }

// IsStaff reports whether the user is faculty, HOD, dean or admin.
func (u *User) IsStaff() bool {
	return u.IsFaculty() || u.IsDean() || u.IsAdmin()
}

// lacksDepartment reports whether the user is a student or faculty member without a department.
func (u *User) lacksDepartment() bool {
	return u.Department == "" && (u.IsStudent() || u.IsFaculty())
}

// CanManageDepartment reports whether the user may manage subjects of the given department.
func (u *User) CanManageDepartment(dept string) bool {
	return u.IsAdmin() || (u.IsHOD() && u.Department != "" && u.Department == dept)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Department      string   `json:"department" validate:"omitempty,max=16,alphanum"`
	RegistrationNo  string   `json:"registration_no" validate:"omitempty,max=32"`
	Semester        int      `json:"semester" validate:"omitempty,min=1,max=12"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Department = core.CleanCode(nu.Department)
	nu.RegistrationNo = core.CleanCode(nu.RegistrationNo)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Department      *string  `json:"department" validate:"omitempty,max=16"`
	RegistrationNo  *string  `json:"registration_no" validate:"omitempty,max=32"`
	Semester        *int     `json:"semester" validate:"omitempty,min=0,max=12"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate cleans the data (falling back to origUsr's values for empty fields) and validates it.
func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Department != nil {
		dept := core.CleanCode(*uu.Department)
		uu.Department = &dept
	}
	if uu.RegistrationNo != nil {
		regNo := core.CleanCode(*uu.RegistrationNo)
		uu.RegistrationNo = &regNo
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	// the department rule holds on the updated user, not only on the fields sent
	if usr := uu.apply(origUsr); usr.lacksDepartment() {
		return core.NewValidationError(nil, core.FieldError{Field: "department", Error: departmentText})
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

// apply returns origUsr updated with the set fields.
func (uu *UpdateUser) apply(origUsr User) User {
	usr := origUsr
	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.Department != nil {
		usr.Department = *uu.Department
	}
	if uu.RegistrationNo != nil {
		usr.RegistrationNo = *uu.RegistrationNo
	}
	if uu.Semester != nil {
		usr.Semester = *uu.Semester
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	return usr
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string
	Roles       []string
	Department  string
	IsActive    *bool
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.Department == "" && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanCode(qf.Department)
}

// Match reports whether usr satisfies the filter (used by in-memory storage).
// Search is a case-insensitive match on one of Name, Username or Email.
// Roles matches users having any role starting with any of the filter roles.
func (qf *QueryFilter) Match(usr User) bool {
	if qf == nil {
		return true
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(usr.Name), s) ||
			strings.Contains(usr.Username, s) ||
			strings.Contains(usr.Email, s)) {
			return false
		}
	}
	if len(qf.Roles) > 0 {
		var found bool
		for _, role := range qf.Roles {
			if usr.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.Department != "" && usr.Department != qf.Department {
		return false
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}

// GetFilter identifies a single User. The first set field is used.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}

// OrderingFields are the fields users can be ordered by.
var OrderingFields = []string{"name", "username", "email", "department", "is_active", "created_at", "updated_at", "last_login"}
