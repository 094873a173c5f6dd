package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseID checks that s is a backend object id (24 hex chars).
func ParseID(s string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, &ValidationError{Field: "id", Reason: "not an object id"}
	}
	return oid, nil
}

// IDTime returns the creation time embedded in an object id.
// Records created locally (pending edits) carry no object id and report false.
func IDTime(id string) (time.Time, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return time.Time{}, false
	}
	return oid.Timestamp(), true
}

// ConversationKey identifies a two-party conversation by the unordered pair of user ids.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
