package domain

import "time"

type CreationType string

const (
	TypeArticle      CreationType = "article"
	TypeBlogTitle    CreationType = "blog-title"
	TypeImage        CreationType = "image"
	TypeResumeReview CreationType = "resume-review"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// User is the caller identity resolved from the identity provider.
// Plan and FreeUsage are authoritative there and never cached across requests.
type User struct {
	ID        string `json:"id"`
	Plan      Plan   `json:"plan"`
	FreeUsage int    `json:"freeUsage"`
}

// Creation is one persisted generation or image-edit result.
// Rows are append-only except for the likes set.
type Creation struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Prompt    string       `json:"prompt"`
	Content   string       `json:"content"`
	Type      CreationType `json:"type"`
	Publish   bool         `json:"publish"`
	Likes     []string     `json:"likes"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Liked reports whether userID is a member of the likes set.
func (c Creation) Liked(userID string) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// LikeTransition is the outcome of a like toggle.
type LikeTransition string

const (
	TransitionLiked   LikeTransition = "liked"
	TransitionUnliked LikeTransition = "unliked"
)
