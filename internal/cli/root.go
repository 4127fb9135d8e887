package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/project-tktt/hn-crawler/internal/config"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/project-tktt/hn-crawler/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const usageHint = "Should run with -p flag. Example: hncrawler -p 10"

// options are shared by the root and watch commands
type options struct {
	posts    string
	logLevel string
	pretty   bool
	maxPages int
}

// NewRootCmd builds the hncrawler command tree
func NewRootCmd(cfg *config.Config, newCrawler CrawlerFactory) *cobra.Command {
	opts := &options{}
	var logger zerolog.Logger

	cmd := &cobra.Command{
		Use:   "hncrawler [flags]",
		Short: "Hacker News top posts CLI",
		Long:  `Collect the top valid posts from the Hacker News front page as JSON.`,
		Example: heredoc.Doc(`
			$ hncrawler -p 10
			$ hncrawler --posts 30 --log-level debug
			$ hncrawler watch -p 30 --interval 15m
		`),
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			cfg.Crawler.MaxPages = opts.maxPages
			logger = logging.Setup(logging.Config{
				Level:   opts.logLevel,
				Pretty:  opts.pretty,
				Output:  c.ErrOrStderr(),
				Service: "hncrawler",
			})
		},
		RunE: func(c *cobra.Command, args []string) error {
			if opts.posts == "" {
				fmt.Fprintln(c.OutOrStdout(), usageHint)
				return nil
			}

			target, err := domain.ParseTarget(opts.posts)
			if err != nil {
				return err
			}

			crawler, err := newCrawler(cfg, logger)
			if err != nil {
				return err
			}

			result, err := crawler.Collect(c.Context(), target)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result.Posts)
		},
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.posts, "posts", "p", "", "Number of valid posts to extract (1-100)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", cfg.Log.Level, "Log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", cfg.Log.Pretty, "Human readable log output")
	cmd.PersistentFlags().IntVar(&opts.maxPages, "max-pages", cfg.Crawler.MaxPages, "Give up after this many listing pages")

	cmd.AddCommand(newWatchCmd(cfg, newCrawler, opts, &logger))
	return cmd
}

// Execute runs hncrawler with configuration from the environment and returns the exit code
func Execute() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cmd := NewRootCmd(config.Load(), NewHackerNewsCrawler)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}
