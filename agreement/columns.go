package agreement

import (
	"fmt"
	"strings"
)

// String renders the key as the column header used in result files.
func (k ColumnKey) String() string {
	switch k.Role {
	case RoleMachine:
		return k.Base + machineSuffix
	case RoleSecondPass:
		return k.Base + secondPassSuffix
	default:
		return k.Base
	}
}

// itemColumnCandidates are tried in order when no item column is configured.
var itemColumnCandidates = []string{"note_name", "ROW_ID", "row_id", "note_id"}

// resolveItemColumn returns the configured item column if the table has it,
// or the first known candidate when none is configured.
func resolveItemColumn(t *Table, configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if !t.Has(configured) {
			return "", fmt.Errorf("item column %q: %w", configured, ErrMissingColumn)
		}
		return configured, nil
	}
	for _, cand := range itemColumnCandidates {
		if t.Has(cand) {
			return cand, nil
		}
	}
	return "", fmt.Errorf("no item column among %v: %w", itemColumnCandidates, ErrMissingColumn)
}
