package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@x.com", NormalizeEmail("  Ana@X.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizeTag(t *testing.T) {
	assert.Nil(t, NormalizeTag(CategoryInquiry, strPtr("rrhh")))
	assert.Nil(t, NormalizeTag(CategoryComplaint, strPtr("rrhh")))
	assert.Nil(t, NormalizeTag(CategoryOther, nil))
	assert.Nil(t, NormalizeTag(CategoryOther, strPtr("   ")))

	tag := NormalizeTag(CategoryOther, strPtr("  rrhh "))
	require.NotNil(t, tag)
	assert.Equal(t, "rrhh", *tag)

	long := NormalizeTag(CategoryOther, strPtr(strings.Repeat("á", 80)))
	require.NotNil(t, long)
	assert.Equal(t, MaxTagLength, len([]rune(*long)))
}

func TestNewLead_Defaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	lead := NewLead(LeadInput{
		Name:        " Ana ",
		Email:       "Ana@X.com",
		CategoryTag: strPtr("rrhh"),
	}, now)

	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "ana@x.com", lead.Email)
	assert.Equal(t, "Ana", lead.Name)
	assert.Equal(t, CategoryInquiry, lead.Category)
	assert.Nil(t, lead.CategoryTag, "tag must be dropped when category is not other")
	assert.Equal(t, DefaultSource, lead.Source)
	assert.NotNil(t, lead.Attribution)
	assert.Equal(t, now, lead.CreatedAt)
	assert.Equal(t, now, lead.UpdatedAt)
}

func TestNewLead_OtherKeepsTag(t *testing.T) {
	lead := NewLead(LeadInput{
		Name:        "Ana",
		Email:       "ana@x.com",
		Category:    CategoryOther,
		CategoryTag: strPtr("ubicacion"),
		Source:      "n8n",
		Attribution: map[string]string{"utm_source": "google"},
	}, time.Now())

	require.NotNil(t, lead.CategoryTag)
	assert.Equal(t, "ubicacion", *lead.CategoryTag)
	assert.Equal(t, "n8n", lead.Source)
	assert.Equal(t, "google", lead.Attribution["utm_source"])
}

func TestLeadMerge_KeepsStoredValuesForEmptyInput(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lead := NewLead(LeadInput{
		Name:        "Ana",
		Email:       "ana@x.com",
		Message:     "primer mensaje",
		Attribution: map[string]string{"utm_source": "google", "utm_medium": "cpc"},
	}, created)

	later := created.Add(time.Hour)
	lead.Merge(LeadInput{
		Email:       "ANA@x.com",
		Phone:       "+54 11 5555-5555",
		Attribution: map[string]string{"utm_medium": "email", "utm_campaign": "spring"},
	}, later)

	assert.Equal(t, "Ana", lead.Name)
	assert.Equal(t, "+54 11 5555-5555", lead.Phone)
	assert.Equal(t, "primer mensaje", lead.Message)
	assert.Equal(t, CategoryInquiry, lead.Category)
	assert.Equal(t, map[string]string{
		"utm_source":   "google",
		"utm_medium":   "email",
		"utm_campaign": "spring",
	}, lead.Attribution)
	assert.Equal(t, created, lead.CreatedAt)
	assert.Equal(t, later, lead.UpdatedAt)
}

func TestLeadMerge_TagFollowsResultingCategory(t *testing.T) {
	lead := NewLead(LeadInput{
		Name:        "Ana",
		Email:       "ana@x.com",
		Category:    CategoryOther,
		CategoryTag: strPtr("prensa"),
	}, time.Now())

	// Same category, no new tag: stored tag survives.
	lead.Merge(LeadInput{Category: CategoryOther}, time.Now())
	require.NotNil(t, lead.CategoryTag)
	assert.Equal(t, "prensa", *lead.CategoryTag)

	// New tag replaces the old one.
	lead.Merge(LeadInput{Category: CategoryOther, CategoryTag: strPtr("proveedor")}, time.Now())
	require.NotNil(t, lead.CategoryTag)
	assert.Equal(t, "proveedor", *lead.CategoryTag)

	// Moving away from other clears the tag even if one is supplied.
	lead.Merge(LeadInput{Category: CategoryComplaint, CategoryTag: strPtr("x")}, time.Now())
	assert.Equal(t, CategoryComplaint, lead.Category)
	assert.Nil(t, lead.CategoryTag)
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(" " + strings.ToUpper(string(c)) + " ")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCategory("consulta")
	assert.Error(t, err)
	_, err = ParseCategory("")
	assert.Error(t, err)
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Consulta", CategoryInquiry.Label())
	assert.Equal(t, "Reclamo", CategoryComplaint.Label())
	assert.Equal(t, "Cotización", CategoryQuoteRequest.Label())
	assert.Equal(t, "Otros", CategoryOther.Label())
	assert.Equal(t, "Consulta", Category("bogus").Label())
}

func TestEventKindFor(t *testing.T) {
	assert.Equal(t, EventLeadCreated, EventKindFor(UpsertCreated))
	assert.Equal(t, EventLeadUpdated, EventKindFor(UpsertUpdated))
}
