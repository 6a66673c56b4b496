// internal/domain/relationship/dto.go
package relationship

import "time"

type TrackContactRequest struct {
	ContactID    string     `json:"contact_id" binding:"required,max=128"`
	FollowUpDate *time.Time `json:"follow_up_date"`
}

type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type LogInteractionRequest struct {
	Type      string            `json:"type" binding:"required"`
	Timestamp *time.Time        `json:"timestamp"`
	Outcome   string            `json:"outcome" binding:"omitempty,oneof=positive neutral negative"`
	Subject   string            `json:"subject" binding:"max=500"`
	Content   string            `json:"content" binding:"max=20000"`
	FileURL   string            `json:"file_url" binding:"omitempty,url,max=2048"`
	Metadata  map[string]string `json:"metadata"`
}

type UpdateInteractionRequest struct {
	Type      *string           `json:"type"`
	Timestamp *time.Time        `json:"timestamp"`
	Outcome   *string           `json:"outcome" binding:"omitempty,oneof=positive neutral negative"`
	Subject   *string           `json:"subject" binding:"omitempty,max=500"`
	Content   *string           `json:"content" binding:"omitempty,max=20000"`
	FileURL   *string           `json:"file_url" binding:"omitempty,max=2048"`
	Metadata  map[string]string `json:"metadata"`
}

type SetFollowUpRequest struct {
	FollowUpDate *time.Time `json:"follow_up_date"`
}

type SetStrengthRequest struct {
	Strength *int `json:"relationship_strength" binding:"required"`
}

type ListFilters struct {
	Status    string `form:"status"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=updated_at strength follow_up_date"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

type ListResponse struct {
	Records []*Record `json:"records"`
	Total   int       `json:"total"`
}

// Progression is the read model behind the contact detail screen.
type Progression struct {
	ContactID            string       `json:"contact_id"`
	Status               Status       `json:"status"`
	AllowedTransitions   []Status     `json:"allowed_transitions"`
	Suggestion           Suggestion   `json:"suggestion"`
	Strength             int          `json:"relationship_strength"`
	DaysSinceLastContact *int         `json:"days_since_last_contact"`
	InteractionCount     int          `json:"interaction_count"`
	LastInteraction      *Interaction `json:"last_interaction,omitempty"`
	Suggestions          []string     `json:"suggestions"`
}
