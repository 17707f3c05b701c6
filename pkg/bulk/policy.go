package bulk

import (
	"fmt"
	"strings"
)

// Policy decides how a target count relates to what is already selected.
type Policy int

const (
	// FillTo treats the target as the desired selection size: nothing
	// happens when it is already met, otherwise the difference is added.
	FillTo Policy = iota

	// AddNew always adds up to target records that are not yet selected.
	AddNew
)

// String returns the config name of the policy.
func (p Policy) String() string {
	switch p {
	case FillTo:
		return "fill_to"
	case AddNew:
		return "add_new"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "fill_to" or "add_new". The empty string is FillTo.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fill_to", "fill-to", "fillto":
		return FillTo, nil
	case "add_new", "add-new", "addnew":
		return AddNew, nil
	default:
		return FillTo, fmt.Errorf("unknown bulk policy %q (want fill_to or add_new)", s)
	}
}

// needed returns how many new records a request for target must add.
func (p Policy) needed(target, current int) int {
	if p == AddNew {
		return target
	}
	return target - current
}
