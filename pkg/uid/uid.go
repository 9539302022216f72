package uid

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewJobID generates a time+random composite job id. Collision-resistant
// for queue purposes, not cryptographically unique.
func NewJobID() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[rand.Intn(len(base36))]
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + string(suffix)
}
