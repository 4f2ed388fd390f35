package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Scalingo/popular-repos/config"
	"github.com/Scalingo/popular-repos/controller"
	"github.com/Scalingo/popular-repos/logger"
	"github.com/Scalingo/popular-repos/model"
	"github.com/Scalingo/popular-repos/popular"
	"github.com/Scalingo/popular-repos/service"
	"github.com/Scalingo/popular-repos/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "popular-repos",
		Short:        "Most popular GitHub repositories per language",
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCommand())
	cmd.AddCommand(showCommand())
	cmd.AddCommand(languagesCommand())

	return cmd
}

// loadConfig load the configuration and configure the logger with it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("unable to load configuration")
		return nil, err
	}

	logger.Setup(*cfg)
	return cfg, nil
}

// setup github client
// we do here and pass the client to Github service to easily improve tests with mock client
func buildGithubClient(ctx context.Context, cfg config.Config) *github.Client {
	httpClient := &http.Client{}

	if cfg.Github.Token != "" {
		log.Debug("will setup github client with authorization token")
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Github.Token}))
	}

	httpClient.Timeout = time.Duration(cfg.Github.RequestTimeoutSeconds) * time.Second
	return github.NewClient(httpClient)
}

// buildGithubService setup the local rate limiter from current github search limits
func buildGithubService(ctx context.Context, cfg config.Config) (service.GithubService, error) {
	githubClient := buildGithubClient(ctx, cfg)

	log.Debug("loading current rate limit from github")
	rateLimiter, err := service.NewSearchRateLimiter(ctx, githubClient)
	if err != nil {
		log.WithError(err).Error("unable to configure the github rate limiter")
		return nil, err
	}

	return service.NewGithubService(cfg, githubClient, rateLimiter), nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			githubService, err := buildGithubService(cmd.Context(), *cfg)
			if err != nil {
				return err
			}

			// setup handlers and sessions
			sessions := session.NewRegistry(
				func() *popular.Cache {
					return popular.New(githubService, popular.WithMaxParallelFetches(cfg.Tasks.MaxParallelTasksAllowed))
				},
				cfg.Sessions.MaxSessions,
				session.WithIdleTTL(time.Duration(cfg.Sessions.IdleTTLSeconds)*time.Second),
			)

			// abandoned sessions are reclaimed even if no new session is created
			sessions.StartCleanup(time.Duration(cfg.Sessions.CleanupIntervalSeconds) * time.Second)

			apiController := controller.NewAPIController(*cfg, sessions)

			// setup server and define all routes
			gin.SetMode(gin.ReleaseMode)
			router := gin.New()

			server := &http.Server{
				Addr:    ":" + cfg.API.ListenPort,
				Handler: router,
			}

			router.Use(
				gin.Recovery(),
				cors.New(cors.Config{
					AllowOrigins: []string{"*"},
					AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
					AllowHeaders: []string{"Content-Type, Content-Length, Accept-Encoding, Host, accept, Origin, Cache-Control, X-Requested-With"},
					MaxAge:       12 * time.Hour,
				}),
			)

			controller.RegisterRoutes(router.Group(""), apiController)

			// start with configuration
			go func() {
				log.Info("server listening on port " + cfg.API.ListenPort)

				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Error("error while starting server")
				}
			}()

			// wait for interrupt signal to gracefully shut down the server
			// kill default send syscall.SIGTERM
			// kill -2 is syscall.SIGINT
			quit := make(chan os.Signal, 1)

			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info("SIGINT, SIGTERM received, will shut down server ...")

			// the server has 15 seconds to finish the requests it is currently handling
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				log.WithError(err).Error("Server forced to shutdown")
			}

			if err := sessions.Close(ctx); err != nil {
				log.WithError(err).Error("unable to close all sessions")
				return err
			}

			log.Info("Application stopped gracefully !")
			return nil
		},
	}
}

func showCommand() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the most popular repositories for a language",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			githubService, err := buildGithubService(cmd.Context(), *cfg)
			if err != nil {
				return err
			}

			cache := popular.New(githubService)
			defer cache.Close(context.Background())

			if err := cache.Select(model.Language(language)); err != nil {
				return err
			}

			timeout := time.Duration(cfg.Github.RequestTimeoutSeconds+1) * time.Second
			status, err := waitSettled(cmd.Context(), cache, timeout)
			if err != nil {
				return err
			}

			printStatus(cmd, status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", string(model.DefaultLanguage), "language to show")
	return cmd
}

func languagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the supported languages",
		Run: func(cmd *cobra.Command, args []string) {
			for _, language := range model.Languages() {
				fmt.Fprintln(cmd.OutOrStdout(), language)
			}
		},
	}
}

// waitSettled poll the cache until the current selection is no longer loading
func waitSettled(ctx context.Context, cache *popular.Cache, timeout time.Duration) (model.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		status := cache.Status()
		if !status.IsLoading() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, fmt.Errorf("waiting for %s repositories: %w", status.Language, ctx.Err())
		case <-ticker.C:
		}
	}
}

func printStatus(cmd *cobra.Command, status model.Status) {
	if status.State == model.StateError {
		fmt.Fprintln(cmd.ErrOrStderr(), status.Error)
		return
	}

	for i, r := range status.Repositories {
		fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%s\t%d stars\t%d forks\t%d issues\t%s\n",
			i+1, r.Owner.Login, r.StargazersCount, r.Forks, r.OpenIssues, r.HTMLURL)
	}
}
