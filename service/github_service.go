package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Scalingo/popular-repos/config"
	"github.com/Scalingo/popular-repos/model"
	"github.com/google/go-github/v66/github"

	log "github.com/sirupsen/logrus"

	"golang.org/x/time/rate"
)

type GithubService interface {
	FetchPopularRepositories(ctx context.Context, language model.Language) ([]model.RepositorySummary, error)
	HandleRequestErrors(err error) error
}

type githubService struct {
	githubClient      *github.Client
	githubRateLimiter *rate.Limiter
	config            config.Config
}

// the search API has its own rate limit, separated from the core one
// Search = 10 calls per minute for non-authenticated and 30 calls per minute for authenticated
func NewGithubService(config config.Config, githubClient *github.Client, rateLimiter *rate.Limiter) GithubService {
	return githubService{
		githubClient:      githubClient,
		githubRateLimiter: rateLimiter,
		config:            config,
	}
}

// NewSearchRateLimiter build a local rate limiter from the current github search rate limit
// tokens already used (by this token or the same IP) are consumed right away
func NewSearchRateLimiter(ctx context.Context, githubClient *github.Client) (*rate.Limiter, error) {
	rateLimits, _, err := githubClient.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load current github rate limits: %w", err)
	}

	search := rateLimits.GetSearch()
	if search == nil || search.Limit <= 0 {
		return nil, fmt.Errorf("github returned no search rate limit: %w", model.ErrRateLimiterError)
	}

	log.WithFields(log.Fields{
		"totalAvailable":    search.Limit,
		"remainingRequests": search.Remaining,
	}).Debug("will setup local rate limiter with search rate limits infos from github")

	rateLimiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(search.Limit)), search.Limit)

	used := search.Limit - search.Remaining
	if used > 0 && !rateLimiter.AllowN(time.Now(), used) {
		return nil, model.ErrRateLimiterError
	}

	return rateLimiter, nil
}

// FetchPopularRepositories return the most starred repositories for a language, already ranked by github
func (s githubService) FetchPopularRepositories(ctx context.Context, language model.Language) ([]model.RepositorySummary, error) {
	if !s.githubRateLimiter.Allow() {
		log.Warning("the Github rate limit has been reached. Use a token or wait until the limit reset")
		return nil, model.ErrRateLimitReached
	}

	if s.config.Github.RequestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.Github.RequestTimeoutSeconds)*time.Second)
		defer cancel()
	}

	query := model.PopularQuery{Language: language}

	log.WithFields(log.Fields{
		"language": language,
		"query":    query.ToGithubQuery(),
	}).Info("fetch popular repositories from github")

	repos, _, err := s.githubClient.Search.Repositories(
		ctx,
		query.ToGithubQuery(),
		&github.SearchOptions{
			Sort:  "stars",
			Order: "desc",
			ListOptions: github.ListOptions{
				Page:    1,
				PerPage: s.config.Github.ResultsPerPage,
			},
		},
	)

	if err != nil {
		return nil, s.HandleRequestErrors(err)
	}

	// keep github order, it's the ranking
	summaries := make([]model.RepositorySummary, 0, len(repos.Repositories))

	for _, r := range repos.Repositories {

		if r == nil || r.Owner == nil || r.Owner.Login == nil || r.HTMLURL == nil {
			log.WithFields(log.Fields{
				"repositoryID": r.GetID(),
				"language":     language,
			}).Debug("repository found with invalid information. whole response rejected")

			return nil, model.ErrInvalidDataFound
		}

		summaries = append(summaries, model.RepositorySummary{
			Name: r.GetName(),
			Owner: model.RepositoryOwner{
				Login:     r.GetOwner().GetLogin(),
				AvatarURL: r.GetOwner().GetAvatarURL(),
			},
			HTMLURL:         r.GetHTMLURL(),
			StargazersCount: r.GetStargazersCount(),
			Forks:           r.GetForksCount(),
			OpenIssues:      r.GetOpenIssuesCount(),
		})
	}

	log.WithFields(log.Fields{
		"language":             language,
		"numberOfRepositories": len(summaries),
	}).Debug("popular repositories fetched")

	return summaries, nil
}

// HandleRequestErrors manage errors including github rate limit errors at the same location
// If error is a rate limit error, this function will update the local rate limiter to consume all available requests
// this can help us to keep the local rate limiter up to date
func (s githubService) HandleRequestErrors(err error) error {
	var rateLimitErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError

	if errors.As(err, &rateLimitErr) || errors.As(err, &abuseErr) {
		available := int(s.githubRateLimiter.Tokens())

		if available > 0 && !s.githubRateLimiter.AllowN(time.Now(), available) {
			return model.ErrRateLimiterError
		}

		log.Warning("the Github rate limit has been reached. Use a token or wait until the limit reset")
		return model.ErrRateLimitReached
	}

	log.WithError(err).Error("error catched when fetching data from github")
	return model.ErrFetchFailure
}
