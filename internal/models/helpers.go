package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a new unique ID with the given prefix
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

// GetCurrentTime returns the current time in UTC, truncated to the microsecond
// precision PostgreSQL stores.
func GetCurrentTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
