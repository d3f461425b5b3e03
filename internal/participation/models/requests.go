package models

import (
	"time"

	"github.com/google/uuid"
)

// CreateParticipationRequest is the POST body. Fields are passed to the service
// as received.
type CreateParticipationRequest struct {
	PersonID    string  `json:"personId"`
	ProjectCode string  `json:"projectCode"`
	Role        string  `json:"role"`
	Percentage  float64 `json:"percentage"`
}

// ParticipationResponse is the transport projection of a Participation.
type ParticipationResponse struct {
	ID          uuid.UUID `json:"id"`
	PersonID    string    `json:"personId"`
	ProjectCode string    `json:"projectCode"`
	Role        string    `json:"role"`
	Percentage  float64   `json:"percentage"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ParticipationListResponse struct {
	Participations []ParticipationResponse `json:"participations"`
	Count          int                     `json:"count"`
}

// ToParticipationResponse copies every exposed field of p.
func ToParticipationResponse(p *Participation) ParticipationResponse {
	return ParticipationResponse{
		ID:          p.ID,
		PersonID:    string(p.PersonID),
		ProjectCode: string(p.ProjectCode),
		Role:        string(p.Role),
		Percentage:  p.Percentage,
		CreatedAt:   p.CreatedAt,
	}
}

func ToParticipationListResponse(ps []*Participation) ParticipationListResponse {
	out := make([]ParticipationResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, ToParticipationResponse(p))
	}
	return ParticipationListResponse{Participations: out, Count: len(out)}
}
