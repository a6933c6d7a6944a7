package internal

import "github.com/google/uuid"

// GenId generates a unique identifier for a websocket peer
func GenId() string {
	return uuid.NewString()
}
