package services

import (
	"strconv"

	"github.com/google/uuid"
)

// pointNamespace scopes point IDs so they never collide with other UUIDv5 users.
var pointNamespace = uuid.MustParse("6f1c3b7e-2d4a-5e8f-9a0b-1c2d3e4f5a6b")

// PointID returns the stable point identifier for a chunk. The same
// document and index always produce the same ID, so re-ingesting a
// document overwrites its points instead of duplicating them.
func PointID(documentID string, index int) string {
	return uuid.NewSHA1(pointNamespace, []byte(documentID+":"+strconv.Itoa(index))).String()
}
