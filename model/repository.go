package model

type RepositoryOwner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// RepositorySummary is the flattened display record for one github repository
// html_url identify the repository
type RepositorySummary struct {
	Name            string          `json:"name"`
	Owner           RepositoryOwner `json:"owner"`
	HTMLURL         string          `json:"html_url"`
	StargazersCount int             `json:"stargazers_count"`
	Forks           int             `json:"forks"`
	OpenIssues      int             `json:"open_issues"`
}

