package models

import (
	"time"
)

// TimestampLayout is the ISO-8601 form browsers produce with Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Post is one message-board entry. The board is persisted as a JSON array of these.
type Post struct {
	ID        int64  `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Edited    bool   `json:"edited,omitempty"`
	EditedAt  string `json:"editedAt,omitempty"`
}

type CreatePostRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type UpdatePostRequest struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

type DeletePostRequest struct {
	ID      int64  `json:"id"`
	Author  string `json:"author"`
	IsAdmin bool   `json:"isAdmin"`
}

type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DistinctAuthors returns every author once, in order of first appearance.
func DistinctAuthors(posts []Post) []string {
	seen := make(map[string]struct{}, len(posts))
	authors := make([]string, 0)
	for _, p := range posts {
		if _, ok := seen[p.Author]; ok {
			continue
		}
		seen[p.Author] = struct{}{}
		authors = append(authors, p.Author)
	}
	return authors
}

// IndexOf returns the position of the post with the given id, or -1.
func IndexOf(posts []Post, id int64) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}
