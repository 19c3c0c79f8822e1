package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed unique identifier.
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// GenerateConnectionID generates a unique connection ID.
func GenerateConnectionID() string {
	return GenerateID("conn")
}

// GenerateSessionID generates a unique streaming session ID.
func GenerateSessionID() string {
	return GenerateID("ses")
}
