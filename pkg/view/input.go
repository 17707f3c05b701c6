package view

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBulkCount validates the bulk count input. It accepts non-negative
// integers; 0 is the clear-selection signal.
func ParseBulkCount(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidCount)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidCount, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidCount, n)
	}
	return n, nil
}

// BulkButtonLabel returns the bulk button text for the current input and
// whether the button is enabled.
func BulkButtonLabel(input string, bulkLoading bool) (string, bool) {
	if bulkLoading {
		return "Selecting...", false
	}
	if strings.TrimSpace(input) == "" {
		return "Select items", false
	}
	n, err := ParseBulkCount(input)
	if err != nil {
		return "Select items", false
	}
	if n == 0 {
		return "Clear Selection", true
	}
	return fmt.Sprintf("Select %d items", n), true
}
