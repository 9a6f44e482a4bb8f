package domain

import "time"

// Action kinds proxied to the provider.
const (
	ActionLike    = "like"
	ActionRetweet = "retweet"
)

// UserAction is one attempted action against one tweet. Rows are append-only.
type UserAction struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	TweetID   string    `json:"tweetId"   db:"tweet_id"`
	Action    string    `json:"action"    db:"action"`
	Success   bool      `json:"success"   db:"success"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ActionStats aggregates the action log of a single user.
type ActionStats struct {
	TotalActions int `json:"totalActions"`
	Likes        int `json:"likes"`
	Retweets     int `json:"retweets"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
}
