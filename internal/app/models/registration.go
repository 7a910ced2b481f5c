package models

import (
	"sort"
	"time"
)

// RegistrationStatus is derived from the grace window, never stored
type RegistrationStatus string

const (
	RegistrationSubmitted RegistrationStatus = "SUBMITTED"
	RegistrationEditable  RegistrationStatus = "EDITABLE"
	RegistrationFinalized RegistrationStatus = "FINALIZED"
)

// CourseRegistration records one student's course selection for a term
type CourseRegistration struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   int64     `json:"studentId" db:"student_id"`
	ProgramID   int64     `json:"programId" db:"program_id"`
	Level       int       `json:"level" db:"level"`
	Semester    Semester  `json:"semester" db:"semester"`
	CourseIDs   []int64   `json:"courseIds"`
	DocumentIDs []int64   `json:"documentIds"`
	SubmittedAt time.Time `json:"submittedAt" db:"submitted_at"`
	GraceEndsAt time.Time `json:"graceEndsAt" db:"grace_ends_at"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// InGracePeriod reports whether the registration may still be touched at now.
func (r *CourseRegistration) InGracePeriod(now time.Time) bool {
	return now.Before(r.GraceEndsAt)
}

// Status is EDITABLE inside the grace window and FINALIZED after it.
func (r *CourseRegistration) Status(now time.Time) RegistrationStatus {
	if r.InGracePeriod(now) {
		return RegistrationEditable
	}
	return RegistrationFinalized
}

// SameCourses compares the stored selection with ids as sets.
func (r *CourseRegistration) SameCourses(ids []int64) bool {
	a := NormalizeIDs(r.CourseIDs)
	b := NormalizeIDs(ids)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NormalizeIDs returns the distinct ids in ascending order.
func NormalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
