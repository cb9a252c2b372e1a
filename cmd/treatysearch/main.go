package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coolbeans/treatysearch/internal/logger"
	"github.com/coolbeans/treatysearch/pkg/config"
	"github.com/coolbeans/treatysearch/pkg/ingest"
	"github.com/coolbeans/treatysearch/pkg/search"
	"github.com/coolbeans/treatysearch/pkg/server"
	"github.com/coolbeans/treatysearch/pkg/store"
	"github.com/coolbeans/treatysearch/pkg/watch"
)

var version = "0.1.0"

// Global flags shared by all subcommands.
var (
	flagDataDir  string
	flagConfig   string
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "treatysearch",
		Short: "Tax treaty document search toolkit",
		Long: `Treatysearch ingests tax treaty documents (as page-delimited text
extracted from PDFs), detects article structure, and provides keyword
search with context-windowed excerpts.

Documents are stored as one JSON record per country, with a secondary
index for listing and statistics.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "document store directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.toml")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(removeCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvironment resolves config, logger, and store for a command run.
func loadEnvironment() (config.Config, zerolog.Logger, *store.Store, error) {
	cfg := config.Default()

	configPath := flagConfig
	if configPath == "" {
		configPath = filepath.Join(cfg.DataDir, config.DefaultFileName)
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		return cfg, zerolog.Nop(), nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	cfg = loaded

	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	st, err := store.Open(cfg.DataDir, log)
	if err != nil {
		return cfg, log, nil, fmt.Errorf("failed to open store at %s: %w", cfg.DataDir, err)
	}

	return cfg, log, st, nil
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest treaty text files",
		Long: `Ingest one or more page-delimited treaty text files (pages separated
by form feeds). The country identifier is derived from each file name
unless --country is given for a single file.

Example:
  treatysearch ingest treaties/Germany.txt
  treatysearch ingest --country "독일" extracted.txt
  treatysearch ingest treaties/*.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			country, _ := cmd.Flags().GetString("country")
			asJSON, _ := cmd.Flags().GetBool("json")

			if country != "" && len(args) > 1 {
				return fmt.Errorf("--country can only be used with a single file")
			}

			_, log, st, err := loadEnvironment()
			if err != nil {
				return err
			}
			ingester := ingest.New(st, log)

			var unreadable []ingest.ItemState
			items := make([]ingest.Item, 0, len(args))
			for _, path := range args {
				itemCountry := country
				if itemCountry == "" {
					itemCountry = ingest.CountryFromPath(path)
				}

				pages, err := ingest.ReadPagesFile(path)
				if err != nil {
					unreadable = append(unreadable, ingest.ItemState{
						Country: itemCountry,
						Status:  "failed",
						Error:   err.Error(),
					})
					continue
				}
				items = append(items, ingest.Item{
					Country:    itemCountry,
					Filename:   filepath.Base(path),
					SourcePath: path,
					Pages:      pages,
				})
			}

			report := ingester.IngestAll(items)
			report.TotalAttempted += len(unreadable)
			report.Failed += len(unreadable)
			report.Entries = append(report.Entries, unreadable...)

			if asJSON {
				return printJSON(report)
			}

			fmt.Printf("Ingested %d of %d documents (%d failed)\n",
				report.Succeeded, report.TotalAttempted, report.Failed)
			for _, entry := range report.Entries {
				if entry.Status == "failed" {
					fmt.Printf("  FAILED %s: %s\n", entry.Country, entry.Error)
				} else {
					fmt.Printf("  ok     %s\n", entry.Country)
				}
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d document(s) failed to ingest", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().String("country", "", "country identifier (single file only)")
	cmd.Flags().Bool("json", false, "print the ingestion report as JSON")
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search stored treaties for a keyword",
		Long: `Search article titles and content for a keyword, case-insensitively.

Example:
  treatysearch search dividend
  treatysearch search 이자 --countries Germany,France
  treatysearch search royalty --full-text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			countriesFlag, _ := cmd.Flags().GetStringSlice("countries")
			fullText, _ := cmd.Flags().GetBool("full-text")
			noArticles, _ := cmd.Flags().GetBool("no-articles")
			asJSON, _ := cmd.Flags().GetBool("json")
			section, _ := cmd.Flags().GetBool("section")

			_, _, st, err := loadEnvironment()
			if err != nil {
				return err
			}

			opts := search.Options{
				Countries:  countriesFlag,
				InArticles: !noArticles,
				InFullText: fullText,
			}
			results := search.NewEngine(st).Search(args[0], opts)

			if asJSON {
				return printJSON(results)
			}

			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}

			for _, result := range results {
				fmt.Printf("%s (%s, %d pages) — %d match(es)\n",
					result.Country, result.Filename, result.TotalPages, result.MatchCount)
				for _, match := range result.Matches {
					switch match.Type {
					case search.MatchTypeArticle:
						fmt.Printf("  Article %s %s (p.%d)\n", match.ArticleNumber, match.ArticleTitle, match.Page)
						if section {
							fmt.Println(indent(search.ExtractRelevantSection(match.Content, args[0]), "    "))
						} else {
							fmt.Printf("    %s\n", match.Highlighted)
						}
					case search.MatchTypeFullText:
						fmt.Printf("  [full text @%d] %s\n", match.Position, match.Content)
					}
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringSlice("countries", nil, "restrict the search to these countries")
	cmd.Flags().Bool("full-text", false, "also scan the full document text")
	cmd.Flags().Bool("no-articles", false, "skip article-level matching")
	cmd.Flags().Bool("section", false, "print the enclosing sub-section instead of the excerpt")
	cmd.Flags().Bool("json", false, "print results as JSON")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List countries with stored treaties",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, st, err := loadEnvironment()
			if err != nil {
				return err
			}

			countries := st.ListCountries()
			if len(countries) == 0 {
				fmt.Println("No treaties stored.")
				return nil
			}
			for _, country := range countries {
				fmt.Println(country)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <country>",
		Short: "Show a stored treaty record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			_, _, st, err := loadEnvironment()
			if err != nil {
				return err
			}

			record, ok := st.Load(args[0])
			if !ok {
				return fmt.Errorf("no treaty stored for %s", args[0])
			}

			if asJSON {
				return printJSON(record)
			}

			fmt.Printf("Country:    %s\n", record.Country)
			fmt.Printf("File:       %s\n", record.Filename)
			fmt.Printf("Pages:      %d\n", record.TotalPages)
			fmt.Printf("Articles:   %d\n", len(record.Articles))
			fmt.Printf("Processed:  %s\n", record.Metadata.ProcessedAt.Format("2006-01-02 15:04:05 MST"))
			for _, article := range record.Articles {
				fmt.Printf("  Article %-6s %s (p.%d)\n", article.Number, article.Title, article.Page)
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the full record as JSON")
	return cmd
}

func removeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [countries...]",
		Short: "Remove stored treaties",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if !all && len(args) == 0 {
				return fmt.Errorf("give at least one country or --all")
			}

			_, _, st, err := loadEnvironment()
			if err != nil {
				return err
			}

			targets := args
			if all {
				targets = st.ListCountries()
			}

			removed := 0
			for _, country := range targets {
				if st.Delete(country) {
					removed++
					fmt.Printf("removed %s\n", country)
				} else {
					fmt.Printf("not found: %s\n", country)
				}
			}
			fmt.Printf("Removed %d treaty record(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "remove every stored treaty")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show document store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			_, _, st, err := loadEnvironment()
			if err != nil {
				return err
			}

			stats := st.Stats()
			if asJSON {
				return printJSON(stats)
			}

			fmt.Printf("Countries: %d\n", stats.TotalCountries)
			if stats.LastUpdated != nil {
				fmt.Printf("Last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05 MST"))
			}
			for _, country := range stats.Countries {
				fmt.Printf("  %s\n", country)
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print statistics as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			cfg, log, st, err := loadEnvironment()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ListenAddr
			}

			return server.New(st, log).ListenAndServe(addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (defaults to config listen_addr)")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch an inbox directory and ingest new treaty files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, st, err := loadEnvironment()
			if err != nil {
				return err
			}

			dir := cfg.WatchDir
			if len(args) > 0 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no watch directory given (argument or watch_dir in config)")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watcher := watch.New(ingest.New(st, log), log)
			if err := watcher.Run(ctx, dir); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
