package entity

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound      = errors.New("lead not found")
	ErrLeadAlreadyExists = errors.New("lead with this email already exists")
)

const (
	DefaultSource = "web"

	MaxNameLength = 200
	MaxTagLength  = 50
)

// Lead is the deduplicated contact record. Email is the identity and is
// always stored normalized.
type Lead struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Phone       string            `json:"phone"`
	Message     string            `json:"message"`
	Category    Category          `json:"category"`
	CategoryTag *string           `json:"categoryTag"`
	Source      string            `json:"source"`
	Attribution map[string]string `json:"utm,omitempty"`
	OriginIP    string            `json:"ip,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// LeadInput is a validated candidate for the lead store. Empty strings and a
// nil CategoryTag mean "not supplied".
type LeadInput struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Message     string            `json:"message,omitempty"`
	Category    Category          `json:"category,omitempty"`
	CategoryTag *string           `json:"categoryTag,omitempty"`
	Source      string            `json:"source,omitempty"`
	Attribution map[string]string `json:"utm,omitempty"`
	OriginIP    string            `json:"ip,omitempty"`
}

type LeadRepository interface {
	FindByEmail(ctx context.Context, email string) (*Lead, error)
	// Insert returns ErrLeadAlreadyExists when the email is already taken.
	Insert(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	CountByCategory(ctx context.Context) (map[Category]int64, error)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeTag is the only place the category tag rule lives: a tag exists
// only for CategoryOther, trimmed and capped at MaxTagLength runes.
func NormalizeTag(category Category, tag *string) *string {
	if category != CategoryOther || tag == nil {
		return nil
	}
	t := strings.TrimSpace(*tag)
	if t == "" {
		return nil
	}
	t = truncateRunes(t, MaxTagLength)
	return &t
}

// NewLead builds a fresh record from the input, applying class defaults.
func NewLead(input LeadInput, now time.Time) *Lead {
	category := input.Category
	if category == "" {
		category = CategoryInquiry
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = DefaultSource
	}

	attribution := make(map[string]string, len(input.Attribution))
	for k, v := range input.Attribution {
		attribution[k] = v
	}

	return &Lead{
		ID:          uuid.New().String(),
		Email:       NormalizeEmail(input.Email),
		Name:        strings.TrimSpace(input.Name),
		Phone:       strings.TrimSpace(input.Phone),
		Message:     strings.TrimSpace(input.Message),
		Category:    category,
		CategoryTag: NormalizeTag(category, input.CategoryTag),
		Source:      source,
		Attribution: attribution,
		OriginIP:    strings.TrimSpace(input.OriginIP),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Merge applies input on top of the stored lead. Non-empty values overwrite,
// empty ones keep what is stored. Attribution is merged key by key.
func (l *Lead) Merge(input LeadInput, now time.Time) {
	if v := strings.TrimSpace(input.Name); v != "" {
		l.Name = v
	}
	if v := strings.TrimSpace(input.Phone); v != "" {
		l.Phone = v
	}
	if v := strings.TrimSpace(input.Message); v != "" {
		l.Message = v
	}
	if v := strings.TrimSpace(input.Source); v != "" {
		l.Source = v
	}
	if v := strings.TrimSpace(input.OriginIP); v != "" {
		l.OriginIP = v
	}

	if input.Category != "" {
		l.Category = input.Category
	}
	if l.Category == "" {
		l.Category = CategoryInquiry
	}
	if tag := NormalizeTag(l.Category, input.CategoryTag); tag != nil {
		l.CategoryTag = tag
	} else {
		l.CategoryTag = NormalizeTag(l.Category, l.CategoryTag)
	}

	if len(input.Attribution) > 0 {
		if l.Attribution == nil {
			l.Attribution = make(map[string]string, len(input.Attribution))
		}
		for k, v := range input.Attribution {
			l.Attribution[k] = v
		}
	}

	l.UpdatedAt = now
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
