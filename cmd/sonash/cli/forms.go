package cli

import (
	"os"

	"github.com/charmbracelet/huh"
)

// NewAccessibleForm returns a huh form that falls back to plain prompts when
// ACCESSIBLE is set.
func NewAccessibleForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithAccessible(os.Getenv("ACCESSIBLE") != "")
}
