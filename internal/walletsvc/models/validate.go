package models

import (
	"errors"
	"strings"
	"unicode"
)

// Palette is the set of background colors offered when adding a card. The
// first entry is used when no color is supplied.
var Palette = []string{
	"#4f46e5", "#db2777", "#d97706", "#059669", "#6d28d9", "#2563eb", "#c026d3", "#be123c",
}

var (
	ErrNameRequired   = errors.New("card name is required")
	ErrNumberRequired = errors.New("card number is required")
	ErrNumberNotASCII = errors.New("barcode supports ASCII characters only")
)

// Normalize applies defaults and validates the fields the add-card form
// checks before a card is sent to the store. Color is not validated.
func (n *NewCard) Normalize() error {
	if strings.TrimSpace(n.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(n.Number) == "" {
		return ErrNumberRequired
	}
	if !n.IsQRCode && !isASCII(n.Number) {
		return ErrNumberNotASCII
	}
	if n.Color == "" {
		n.Color = Palette[0]
	}
	if n.ImageURL != nil && *n.ImageURL == "" {
		n.ImageURL = nil
	}
	return nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
