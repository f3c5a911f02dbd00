package entities

import (
	"fmt"
	"strings"
)

// GroupKey identifies the dimension plan targets are defined at (e.g. a customer).
// It is always held in canonical form: trimmed and upper-cased.
type GroupKey string

// NormalizeGroupKey converts raw text into the canonical GroupKey form
func NormalizeGroupKey(raw string) (GroupKey, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return "", fmt.Errorf("group key cannot be empty")
	}
	return GroupKey(key), nil
}

// Key is the (group, month) join key shared by every stage
type Key struct {
	Group GroupKey
	Month MonthCode
}

// String renders the key for logs and error messages
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Group, k.Month)
}

// Less orders keys by group, then month
func (k Key) Less(other Key) bool {
	if k.Group != other.Group {
		return k.Group < other.Group
	}
	return k.Month < other.Month
}
