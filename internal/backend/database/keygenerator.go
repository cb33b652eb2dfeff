package database

import "github.com/google/uuid"

// generateID returns a random RFC 4122 version 4 identifier for new rows.
func generateID() string {
	return uuid.NewString()
}
