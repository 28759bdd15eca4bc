package report

import (
	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/subject"
	"github.com/trezcool/maoni/core/user"
)

// Authorize restricts filter to what viewer may report on.
// Deans & admins see everything, HODs their department and faculty their own subjects.
func Authorize(viewer user.User, groupBy GroupBy, filter *Filter) error {
	switch {
	case viewer.IsAdmin(), viewer.IsDean():
		return nil
	case viewer.IsHOD():
		if viewer.Department == "" {
			return core.ErrPermissionDenied
		}
		filter.Department = viewer.Department
		return nil
	case viewer.IsFaculty():
		if groupBy == ByDepartment || groupBy == ByTerm {
			return core.ErrPermissionDenied
		}
		filter.FacultyID = viewer.ID
		return nil
	}
	return core.ErrPermissionDenied
}

// CanViewSubject reports whether viewer may see the report of subj.
func CanViewSubject(viewer user.User, subj subject.Subject) bool {
	switch {
	case viewer.IsAdmin(), viewer.IsDean():
		return true
	case viewer.IsHOD():
		return viewer.Department != "" && subj.Department == viewer.Department
	case viewer.IsFaculty():
		return subj.FacultyID == viewer.ID
	}
	return false
}
