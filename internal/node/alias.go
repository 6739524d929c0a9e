// internal/node/alias.go
package node

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/ratio1/r1nodectl/internal/constants"
)

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateAlias checks a node alias against the naming rules before it is
// handed to the node: nonempty, at most MaxAliasLength characters, and
// limited to letters, digits, hyphens and underscores.
func ValidateAlias(alias string) error {
	if alias == "" {
		return errors.New("node alias cannot be empty")
	}
	if len(alias) > constants.MaxAliasLength {
		return errors.Errorf("node alias cannot exceed %d characters (got %d)", constants.MaxAliasLength, len(alias))
	}
	if !aliasPattern.MatchString(alias) {
		return errors.New("node alias can only contain letters, numbers, hyphens and underscores")
	}
	return nil
}
