package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	dErrors "gestion/pkg/domain-errors"
)

// PersonID is a person's matricule.
type PersonID string

// ProjectCode identifies a project.
type ProjectCode string

// Role describes what a person does on a project (developer, lead, ...).
type Role string

// MaxOccupation is the total percentage a person can be committed across projects.
const MaxOccupation = 100.0

// occupationEpsilon absorbs float rounding when summing two-decimal percentages.
const occupationEpsilon = 1e-9

// PercentageScale is the number of decimals a percentage may carry. It matches
// the numeric(5,2) column so every store returns what was accepted.
const PercentageScale = 2

type Person struct {
	ID        PersonID `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
}

type Project struct {
	Code      ProjectCode `json:"code"`
	Name      string      `json:"name"`
	StartDate time.Time   `json:"startDate"`
	EndDate   *time.Time  `json:"endDate,omitempty"`
}

// IsFinished reports whether the project ended strictly before now.
func (p *Project) IsFinished(now time.Time) bool {
	return p.EndDate != nil && p.EndDate.Before(now)
}

// Participation links a person to a project with a role and a share of their time.
//
// Invariants:
//   - Percentage is in (0, 100] with at most two decimals
//   - (PersonID, ProjectCode) is unique; enforced by the store
//   - The sum of a person's percentages never exceeds MaxOccupation; enforced by
//     the service inside a transaction
type Participation struct {
	ID          uuid.UUID   `json:"id"`
	PersonID    PersonID    `json:"personId"`
	ProjectCode ProjectCode `json:"projectCode"`
	Role        Role        `json:"role"`
	Percentage  float64     `json:"percentage"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ValidatePercentage checks the per-participation bound.
func ValidatePercentage(percentage float64) error {
	if math.IsNaN(percentage) || percentage <= 0 || percentage > MaxOccupation {
		return dErrors.New(dErrors.CodeInvalidState, "percentage must be greater than 0 and at most 100")
	}
	if !hasScale(percentage, PercentageScale) {
		return dErrors.New(dErrors.CodeInvalidState, "percentage must have at most 2 decimal places")
	}
	return nil
}

func hasScale(v float64, decimals int) bool {
	scaled := v * math.Pow10(decimals)
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

// CheckOccupation rejects a new share that would push the person past MaxOccupation.
func CheckOccupation(personID PersonID, occupied, percentage float64) error {
	if occupied+percentage > MaxOccupation+occupationEpsilon {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("person %s would exceed 100%% occupation (currently %s%%)", personID, formatPercentage(occupied)))
	}
	return nil
}

func NewParticipation(id uuid.UUID, personID PersonID, projectCode ProjectCode, role Role, percentage float64, now time.Time) (*Participation, error) {
	if err := ValidatePercentage(percentage); err != nil {
		return nil, err
	}
	return &Participation{
		ID:          id,
		PersonID:    personID,
		ProjectCode: projectCode,
		Role:        role,
		Percentage:  percentage,
		CreatedAt:   now,
	}, nil
}

func formatPercentage(p float64) string {
	return fmt.Sprintf("%g", math.Round(p*100)/100)
}
