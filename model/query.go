package model

import "strings"

type PopularQuery struct {
	Language Language
	MinStars string
}

// ToGithubQuery build the search query sent to github
// "All" is not a real github language, so no language qualifier is added for it
func (params PopularQuery) ToGithubQuery() string {
	var githubQuery strings.Builder

	minStars := params.MinStars
	if minStars == "" {
		minStars = "1"
	}

	githubQuery.WriteString("stars:>" + minStars + " ")

	if params.Language != "" && params.Language != LanguageAll {
		githubQuery.WriteString("language:" + string(params.Language) + " ")
	}

	return strings.TrimSpace(githubQuery.String())
}
