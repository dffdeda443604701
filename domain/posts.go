package domain

import (
	"fmt"
	"time"
)

const AnonymousAuthor = "Anonymous"

// Post is a blog entry as returned by the backend. Body is raw HTML.
type Post struct {
	Id             uint64    `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Author         Principal `json:"author"`
	AuthorUsername string    `json:"authorUsername"`
	Timestamp      int64     `json:"timestamp"` // nanoseconds since the epoch
}

// DisplayAuthor is the username, or Anonymous when the author never set one.
func (post *Post) DisplayAuthor() string {
	if post.AuthorUsername == "" {
		return AnonymousAuthor
	}
	return post.AuthorUsername
}

// CreatedAt scales the nanosecond timestamp down to milliseconds.
func (post *Post) CreatedAt() time.Time {
	return time.UnixMilli(post.Timestamp / 1_000_000)
}

func (post *Post) ToString() string {
	return fmt.Sprintf("\n\tId: %d \n\tTitle: %s \n\tAuthor: %s \n\tTimestamp: %d)", post.Id, post.Title, post.Author, post.Timestamp)
}
