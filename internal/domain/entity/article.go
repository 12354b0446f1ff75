package entity

import "time"

// ArticleStatus is the publication state of a generated article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
)

// Article is one piece of generated content produced from a crawled source.
// Confidence is the heuristic quality score computed at generation time; it
// decides whether the article is escalated for review, never whether it is
// stored.
type Article struct {
	ID         int64
	SourceID   int64
	Title      string
	Content    string
	Summary    string
	Topics     []string
	Status     ArticleStatus
	Confidence float64
	CreatedAt  time.Time
}
