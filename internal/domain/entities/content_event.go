package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ContentKind names the kind of public content an event refers to.
type ContentKind string

const (
	ContentKindArticle      ContentKind = "article"
	ContentKindPractitioner ContentKind = "practitioner"
)

// ContentAction describes what happened to the content.
type ContentAction string

const (
	ContentActionCreated     ContentAction = "created"
	ContentActionUpdated     ContentAction = "updated"
	ContentActionPublished   ContentAction = "published"
	ContentActionUnpublished ContentAction = "unpublished"
	ContentActionDeleted     ContentAction = "deleted"
	ContentActionModerated   ContentAction = "moderated"
)

// ContentEvent announces a write that may change what anonymous visitors see.
type ContentEvent struct {
	ID        string        `json:"id"`
	Kind      ContentKind   `json:"kind"`
	EntityID  string        `json:"entity_id"`
	Slug      string        `json:"slug,omitempty"`
	Action    ContentAction `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewContentEvent creates a content event stamped with the current time.
func NewContentEvent(kind ContentKind, entityID, slug string, action ContentAction) *ContentEvent {
	return &ContentEvent{
		ID:        generateEventID(),
		Kind:      kind,
		EntityID:  entityID,
		Slug:      slug,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return time.Now().UTC().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
