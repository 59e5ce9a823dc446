package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArticle_StateTransitions(t *testing.T) {
	scheduled := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	a := &Article{}
	assert.Equal(t, ArticleStateDraft, a.State())

	a.ScheduledAt = &scheduled
	assert.Equal(t, ArticleStateScheduled, a.State())

	now := scheduled.Add(time.Minute)
	a.Publish(now)
	assert.Equal(t, ArticleStatePublished, a.State())
	assert.Nil(t, a.ScheduledAt)
	assert.Equal(t, now, *a.PublishedAt)

	a.Unpublish()
	assert.Equal(t, ArticleStateDraft, a.State())
	assert.Nil(t, a.PublishedAt)
}

func TestPractitionerStatus_Valid(t *testing.T) {
	assert.True(t, PractitionerStatusApproved.Valid())
	assert.True(t, PractitionerStatusPending.Valid())
	assert.False(t, PractitionerStatus("archived").Valid())
}
