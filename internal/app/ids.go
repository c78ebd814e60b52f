package app

import "github.com/google/uuid"

// newSessionID returns a random UUIDv4 used in session URLs.
func newSessionID() string {
	return uuid.NewString()
}

// validSessionID rejects ids that could not have come from newSessionID,
// so lookups for junk paths skip the map entirely.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
