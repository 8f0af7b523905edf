package config

import (
	"fmt"

	"github.com/gatewatch/botctl/internal/errors"
)

// Variant is the installation mode: who runs the bot and which unit
// template is installed. Immutable once chosen; re-running setup with a
// different variant overwrites the previously installed unit.
type Variant string

const (
	// VariantRoot runs the service as root.
	VariantRoot Variant = "root"
	// VariantUser runs the service as an isolated system user.
	VariantUser Variant = "user"
)

// ParseVariant maps operator input to a Variant. It accepts the variant
// names and the numeric menu choices ("1" for root, "2" for user) the
// interactive prompt offers.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "root", "1":
		return VariantRoot, nil
	case "user", "2":
		return VariantUser, nil
	default:
		return "", fmt.Errorf("%w: %q (expected root or user)", errors.ErrInvalidVariant, s)
	}
}

// String returns the variant name.
func (v Variant) String() string {
	return string(v)
}
