package usecase

import (
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// SubmitLeadInput is the inbound payload shared by the public form, the
// automation webhook and the internal upsert contract.
type SubmitLeadInput struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Message     string            `json:"message,omitempty"`
	Category    string            `json:"category,omitempty"`
	CategoryTag *string           `json:"categoryTag,omitempty"`
	Source      string            `json:"source,omitempty"`
	Attribution map[string]string `json:"utm,omitempty"`
	OriginIP    string            `json:"ip,omitempty"`
}

type SubmitLeadOutput struct {
	Status   entity.UpsertStatus `json:"status"`
	LeadID   string              `json:"leadId"`
	Lead     *entity.Lead        `json:"-"`
	Notified bool                `json:"notified"`
}

type UpsertLeadOutput struct {
	Status entity.UpsertStatus `json:"status"`
	Lead   *entity.Lead        `json:"lead"`
}

// Delivery is the notifier's answer to the event originator. Only the email
// channel contributes to it.
type Delivery struct {
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// ChannelResult is what a side channel reports for logging and metrics.
type ChannelResult struct {
	Success bool
	Error   string
}

// toLeadInput assumes the input already passed ValidateSubmission.
func (in SubmitLeadInput) toLeadInput() entity.LeadInput {
	var category entity.Category
	if strings.TrimSpace(in.Category) != "" {
		category, _ = entity.ParseCategory(in.Category)
	}
	return entity.LeadInput{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Message:     in.Message,
		Category:    category,
		CategoryTag: in.CategoryTag,
		Source:      in.Source,
		Attribution: in.Attribution,
		OriginIP:    in.OriginIP,
	}
}
