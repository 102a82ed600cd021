// stocksense aggregates news, sentiment scores and stock market data.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/stocksense/api"
	"github.com/seenimoa/stocksense/internal/aggregate"
	"github.com/seenimoa/stocksense/internal/config"
	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/news"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/sentiment"
	"github.com/seenimoa/stocksense/internal/stocks"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stocksense",
	Short: "stocksense: news, sentiment and stock data in one query",
	Long: `stocksense runs configurable news, sentiment and stocks pipelines
against third-party providers, attaches sentiment scores to articles and
merges quotes, daily history and company news into one record per symbol.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		return logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	for _, c := range []*cobra.Command{newsCmd, stocksCmd, sentimentCmd} {
		pipelineFlags(c)
	}
	runCmd.Flags().String("symbols", "", "comma-separated symbols to look up alongside the topic")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(stocksCmd)
	rootCmd.AddCommand(sentimentCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// pipelineFlags registers the per-call pipeline options shared by the
// domain commands.
func pipelineFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("source", "", "builtin source preset")
	f.String("request", "", "request strategy")
	f.String("filter", "", "filter strategy")
	f.String("body", "", "body strategy (default, none)")
	f.String("text", "", "text strategy (default, readability, none)")
	f.Bool("google", false, "use the search provider variant")
	f.String("exclude", "", "link exclusion pattern")
	f.String("selector", "", "CSS selector for article text")
	f.String("startdate", "", "window start, YYYY-MM-DD")
	f.String("enddate", "", "window end, YYYY-MM-DD")
	f.Int("concurrency", 0, "fan-out limit")
}

func configFromFlags(c *cobra.Command) pipeline.Config {
	f := c.Flags()
	get := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	concurrency, _ := f.GetInt("concurrency")
	cfg := pipeline.Config{
		Source:      get("source"),
		Request:     get("request"),
		Filter:      get("filter"),
		Body:        get("body"),
		Text:        get("text"),
		Exclude:     get("exclude"),
		Selector:    get("selector"),
		StartDate:   get("startdate"),
		EndDate:     get("enddate"),
		Concurrency: concurrency,
	}
	if f.Changed("google") {
		google, _ := f.GetBool("google")
		cfg.Google = pipeline.Bool(google)
	}
	return cfg
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stocksense %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [query]",
	Short: "Search news articles",
	Example: `  stocksense news apple
  stocksense news "interest rates" --source guardian
  stocksense news tesla --source rss --text none`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := aggregate.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		docs, err := agg.SearchNews(cmd.Context(), strings.Join(args, " "), configFromFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(docs)
	},
}

// --- Stocks Command ---

var stocksCmd = &cobra.Command{
	Use:   "stocks [symbols]",
	Short: "Look up unified stock records",
	Example: `  stocksense stocks AAPL,MSFT
  stocksense stocks TSLA --startdate 2026-09-01 --enddate 2026-09-30 --body none`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := aggregate.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		recs, err := agg.LookupStocks(cmd.Context(), args[0], configFromFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(recs)
	},
}

// --- Sentiment Command ---

var sentimentCmd = &cobra.Command{
	Use:   "sentiment [text or url]",
	Short: "Score the sentiment of a text or article URL",
	Example: `  stocksense sentiment "shares surge after record quarter"
  stocksense sentiment https://news.example.com/story --source indico`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := aggregate.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		res, err := agg.Score(cmd.Context(), strings.Join(args, " "), configFromFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Fetch news and stock data for a topic and attach sentiment",
	Example: `  stocksense run apple --symbols AAPL
  stocksense run "chip makers" --symbols NVDA,AMD,INTC`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := aggregate.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		symbols, _ := cmd.Flags().GetString("symbols")
		res, err := agg.Run(cmd.Context(), aggregate.Request{Topic: strings.Join(args, " "), Symbols: symbols})
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := aggregate.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
		return api.NewServer(cfg.API, agg, version).ListenAndServe(cmd.Context(), addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  stocksense: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    News:          %s (presets: %s)\n", cfg.News.Source, strings.Join(news.Presets.Names(), ", "))
		fmt.Printf("    Sentiment:     %s (presets: %s)\n", cfg.Sentiment.Source, strings.Join(sentiment.Presets.Names(), ", "))
		fmt.Printf("    Stocks:        %s (presets: %s)\n", cfg.Stocks.Source, strings.Join(stocks.Presets.Names(), ", "))
		fmt.Printf("    Search:        %s\n", cfg.Search.Provider)
		fmt.Printf("    Company news:  %s\n", cfg.Finance.CompanyNews)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  Request strategies:")
		fmt.Printf("    News:          %s\n", strings.Join(news.NewRegistry(news.Deps{}).Names(pipeline.StageRequest), ", "))
		fmt.Printf("    Sentiment:     %s\n", strings.Join(sentiment.NewRegistry(nil).Names(pipeline.StageRequest), ", "))
		fmt.Printf("    Stocks:        %s\n", strings.Join(stocks.NewRegistry(stocks.Deps{}).Names(pipeline.StageRequest), ", "))
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
