// internal/domain/outreach/dto.go
package outreach

import "fluencr-service/internal/domain/quota"

type GenerateMessageRequest struct {
	Prompt         string `json:"prompt" binding:"required,max=2000"`
	InfluencerName string `json:"influencer_name" binding:"required,max=200"`
	Platform       string `json:"platform" binding:"required,max=100"`
	Industry       string `json:"industry" binding:"required,max=100"`
	Context        string `json:"context" binding:"max=2000"`
}

type GenerateMessageResponse struct {
	Subject     string       `json:"subject"`
	Message     string       `json:"message"`
	Suggestions []string     `json:"suggestions"`
	Quota       *quota.Quota `json:"trialInfo"`
}
