package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Scalingo/popular-repos/model"
	"github.com/Scalingo/popular-repos/popular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguagesCommand(t *testing.T) {
	var out bytes.Buffer

	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"languages"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "All\nJavascript\nRuby\nJava\nCSS\nPython\n", out.String())
}

func TestWaitSettledAndPrint(t *testing.T) {
	tests := []struct {
		name        string
		fetcher     popular.FetcherFunc
		expectedOut string
		expectedErr string
	}{
		{
			name: "Ranked repositories",
			fetcher: func(_ context.Context, _ model.Language) ([]model.RepositorySummary, error) {
				return []model.RepositorySummary{
					{Owner: model.RepositoryOwner{Login: "rails"}, HTMLURL: "https://github.com/rails/rails", StargazersCount: 3, Forks: 2, OpenIssues: 1},
					{Owner: model.RepositoryOwner{Login: "jekyll"}, HTMLURL: "https://github.com/jekyll/jekyll", StargazersCount: 2, Forks: 1, OpenIssues: 0},
				}, nil
			},
			expectedOut: "#1\trails\t3 stars\t2 forks\t1 issues\thttps://github.com/rails/rails\n" +
				"#2\tjekyll\t2 stars\t1 forks\t0 issues\thttps://github.com/jekyll/jekyll\n",
		},
		{
			name: "Fetch error",
			fetcher: func(_ context.Context, _ model.Language) ([]model.RepositorySummary, error) {
				return nil, errors.New("network down")
			},
			expectedErr: model.FetchErrorMessage + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := popular.New(tt.fetcher)
			defer cache.Close(context.Background())

			require.NoError(t, cache.Select(model.LanguageRuby))

			status, err := waitSettled(context.Background(), cache, time.Second)
			require.NoError(t, err)

			var out, errOut bytes.Buffer
			cmd := rootCommand()
			cmd.SetOut(&out)
			cmd.SetErr(&errOut)

			printStatus(cmd, status)

			assert.Equal(t, tt.expectedOut, out.String())
			assert.Equal(t, tt.expectedErr, errOut.String())
		})
	}
}

func TestWaitSettledTimeout(t *testing.T) {
	cache := popular.New(popular.FetcherFunc(func(ctx context.Context, _ model.Language) ([]model.RepositorySummary, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	defer cache.Close(context.Background())

	require.NoError(t, cache.Select(model.LanguageJava))

	status, err := waitSettled(context.Background(), cache, 20*time.Millisecond)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, model.StateLoading, status.State)
}
