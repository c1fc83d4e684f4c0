package models

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

type Stats struct {
	TotalPosts int      `json:"totalPosts"`
	TotalUsers int      `json:"totalUsers"`
	Authors    []string `json:"authors"`
}

type AdminOverview struct {
	Posts []Post `json:"posts"`
	Stats Stats  `json:"stats"`
}

type UpdatePostResponse struct {
	Message string `json:"message"`
	Post    Post   `json:"post"`
}

// StatsFor derives the admin stats from a full board snapshot.
func StatsFor(posts []Post) Stats {
	authors := DistinctAuthors(posts)
	return Stats{
		TotalPosts: len(posts),
		TotalUsers: len(authors),
		Authors:    authors,
	}
}
