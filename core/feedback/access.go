package feedback

import (
	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/user"
)

// Scope restricts filter to the feedback viewer is allowed to see:
// students their own, faculty the ones on their subjects, HODs their department's,
// deans & admins everything.
// Only admins may filter by author: for anyone else it would reveal who wrote what.
func Scope(viewer user.User, filter *QueryFilter) error {
	if !viewer.IsAdmin() {
		filter.StudentID = ""
	}
	switch {
	case viewer.IsAdmin(), viewer.IsDean():
	case viewer.IsHOD():
		if viewer.Department == "" {
			return core.ErrPermissionDenied
		}
		filter.Department = viewer.Department
	case viewer.IsFaculty():
		filter.FacultyID = viewer.ID
	case viewer.IsStudent():
		filter.StudentID = viewer.ID
	default:
		return core.ErrPermissionDenied
	}
	return nil
}

// CanView reports whether viewer is allowed to see fb.
func CanView(viewer user.User, fb Feedback) bool {
	switch {
	case viewer.IsAdmin(), viewer.IsDean():
		return true
	case viewer.IsHOD():
		return viewer.Department != "" && fb.Department == viewer.Department
	case viewer.IsFaculty():
		return fb.FacultyID == viewer.ID
	case viewer.IsStudent():
		return fb.StudentID == viewer.ID
	}
	return false
}

// Anonymize hides the author of fb from anyone but the author & admins.
func Anonymize(viewer user.User, fb Feedback) Feedback {
	if !(viewer.IsAdmin() || (viewer.ID != "" && viewer.ID == fb.StudentID)) {
		fb.StudentID = ""
	}
	return fb
}
