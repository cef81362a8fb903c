package handlers

import (
	"strings"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	"github.com/nancymuyeh/SafeSpace/internal/service"
)

// CreateStoryRequest is the body of POST /stories.
type CreateStoryRequest struct {
	Content string  `json:"content" validate:"required,min=1,max=1000" example:"Today was hard but I made it through."`
	Mood    string  `json:"mood" validate:"required,mood" example:"hopeful"`
	UserID  *string `json:"userId,omitempty" validate:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ToInput converts the request into a service input. authUserID is used as
// the author when the body carries none.
func (r CreateStoryRequest) ToInput(authUserID string) service.CreateStoryInput {
	in := service.CreateStoryInput{
		Content: r.Content,
		Mood:    domain.Mood(r.Mood),
	}
	switch {
	case r.UserID != nil && *r.UserID != "":
		id := strings.ToLower(*r.UserID)
		in.UserID = &id
	case authUserID != "":
		id := authUserID
		in.UserID = &id
	}
	return in
}

// ReactionRequest is the body of POST /stories/{id}/reactions.
type ReactionRequest struct {
	Type string `json:"type" validate:"required,max=64" example:"hug"`
}

// ReportRequest is the body of POST /stories/{id}/report.
type ReportRequest struct {
	Reason string `json:"reason" validate:"required,max=500" example:"harassment"`
}
