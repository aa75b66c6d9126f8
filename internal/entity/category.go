package entity

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryInquiry      Category = "inquiry"
	CategoryComplaint    Category = "complaint"
	CategoryQuoteRequest Category = "quote-request"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryInquiry,
	CategoryComplaint,
	CategoryQuoteRequest,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryInquiry:      "Consulta",
	CategoryComplaint:    "Reclamo",
	CategoryQuoteRequest: "Cotización",
	CategoryOther:        "Otros",
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the localized name shown to staff (emails, sheet names).
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryInquiry]
}

// ParseCategory accepts exactly one of the enum values, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid category %q", s)
	}
	return c, nil
}
