package entities

import "time"

// DefaultAuthorName is used when an article is saved without an author.
const DefaultAuthorName = "Simon King"

// ArticleState is derived from the publication columns.
type ArticleState string

const (
	ArticleStateDraft     ArticleState = "draft"
	ArticleStateScheduled ArticleState = "scheduled"
	ArticleStatePublished ArticleState = "published"
)

// Article is a science/blog post.
type Article struct {
	ID               string     `json:"id" db:"id"`
	Title            string     `json:"title" db:"title"`
	Slug             string     `json:"slug" db:"slug"`
	Excerpt          string     `json:"excerpt" db:"excerpt"`
	Content          string     `json:"content" db:"content"`
	AuthorName       string     `json:"author_name" db:"author_name"`
	FeaturedImageURL string     `json:"featured_image_url,omitempty" db:"featured_image_url"`
	Category         string     `json:"category,omitempty" db:"category"`
	Tags             []string   `json:"tags" db:"tags"`
	Published        bool       `json:"published" db:"published"`
	PublishedAt      *time.Time `json:"published_at" db:"published_at"`
	ScheduledAt      *time.Time `json:"scheduled_at" db:"scheduled_at"`
	Views            int64      `json:"views" db:"views"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// State returns which of draft, scheduled or published the article is in.
func (a *Article) State() ArticleState {
	switch {
	case a.Published:
		return ArticleStatePublished
	case a.ScheduledAt != nil:
		return ArticleStateScheduled
	default:
		return ArticleStateDraft
	}
}

// Publish moves the article to the published state at now.
func (a *Article) Publish(now time.Time) {
	a.Published = true
	a.PublishedAt = &now
	a.ScheduledAt = nil
}

// Unpublish returns the article to draft.
func (a *Article) Unpublish() {
	a.Published = false
	a.PublishedAt = nil
	a.ScheduledAt = nil
}

// ArticleInput is the admin create/update payload.
type ArticleInput struct {
	Title            string     `json:"title" validate:"required,max=300"`
	Slug             string     `json:"slug" validate:"omitempty,max=160"`
	Excerpt          string     `json:"excerpt" validate:"max=1000"`
	Content          string     `json:"content" validate:"required"`
	AuthorName       string     `json:"author_name" validate:"max=200"`
	FeaturedImageURL string     `json:"featured_image_url" validate:"omitempty,max=1000"`
	Category         string     `json:"category" validate:"max=100"`
	Tags             []string   `json:"tags" validate:"max=30,dive,max=60"`
	Published        bool       `json:"published"`
	ScheduledAt      *time.Time `json:"scheduled_at"`
}

// ArticleSummary is the admin list projection.
type ArticleSummary struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Slug        string     `json:"slug" db:"slug"`
	Excerpt     string     `json:"excerpt" db:"excerpt"`
	Category    string     `json:"category,omitempty" db:"category"`
	Published   bool       `json:"published" db:"published"`
	PublishedAt *time.Time `json:"published_at" db:"published_at"`
	ScheduledAt *time.Time `json:"scheduled_at" db:"scheduled_at"`
	Views       int64      `json:"views" db:"views"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ArticleFilter narrows article listings.
type ArticleFilter struct {
	Category string
	State    ArticleState
	Limit    int
	Offset   int
}

// PendingArticle is an article waiting for the scheduled publication sweep.
type PendingArticle struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Slug        string    `json:"slug" db:"slug"`
	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// PublishedArticle identifies an article flipped to published by a sweep.
type PublishedArticle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// PublishFailure records one article the sweep could not publish.
type PublishFailure struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// PublishResult is the outcome of one scheduled publication sweep.
type PublishResult struct {
	Published []PublishedArticle `json:"published"`
	Errors    []PublishFailure   `json:"errors,omitempty"`
}

// ArticleSearchHit is a full-text search result.
type ArticleSearchHit struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	PublishedAt *time.Time `json:"published_at"`
}
