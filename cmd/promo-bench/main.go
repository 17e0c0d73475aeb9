// Package main provides the promo matching testbench. It runs the full
// pipeline for one user against live backends and prints every
// retrieval decision, which makes threshold tuning visible.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/scandelicious/promo-engine/internal/config"
	"github.com/scandelicious/promo-engine/internal/genai"
	"github.com/scandelicious/promo-engine/internal/matching"
	"github.com/scandelicious/promo-engine/internal/observability"
	"github.com/scandelicious/promo-engine/internal/profile"
	"github.com/scandelicious/promo-engine/internal/promoindex"
	"github.com/scandelicious/promo-engine/internal/recommend"
)

var (
	cfgFile   string
	envFile   string
	threshold float64
	skipGen   bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "promo-bench",
	Short: "Promo matching testbench",
	Long: `promo-bench runs the promo matching pipeline for one user against
live backends: fetch the enriched profile from Postgres, search the
promo index with rerank, and optionally generate the briefing.

Every hit is printed with its rerank score and a KEEP/DROP verdict
against the active threshold, which makes threshold tuning visible.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		} else {
			_ = godotenv.Load()
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      "console",
			ServiceName: "promo-bench",
		})
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <user-id>",
	Short: "Run the matching pipeline for one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: env vars)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", ".env file to load before config")

	runCmd.Flags().Float64Var(&threshold, "threshold", 0.3,
		"rerank score threshold (the service default is stricter)")
	runCmd.Flags().BoolVar(&skipGen, "no-generate", false, "skip the briefing generation step")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(ctx context.Context, userID string) error {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	indexClient, err := promoindex.NewClient(promoindex.Config{
		Host:        cfg.PromoIndex.Host,
		APIKey:      cfg.PromoIndex.APIKey,
		Namespace:   cfg.PromoIndex.Namespace,
		RerankModel: cfg.PromoIndex.RerankModel,
		Timeout:     cfg.PromoIndex.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("create index client: %w", err)
	}

	printHeader("Promo Matching Testbench")
	fmt.Printf("user=%s threshold=%.2f top_k=%d top_n=%d\n\n",
		userID, threshold, cfg.Matching.SearchTopK, cfg.Matching.RerankTopN)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching enriched profile..."
	s.Writer = os.Stderr
	s.Start()

	repo := profile.NewRepository(db)
	p, err := repo.GetByUserID(ctx, userID)
	s.Stop()
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	printProfile(p)

	matchCfg := matching.Config{
		SearchTopK:     cfg.Matching.SearchTopK,
		RerankTopN:     cfg.Matching.RerankTopN,
		ScoreThreshold: threshold,
		ItemDelay:      cfg.Matching.ItemDelay,
	}
	matcher := matching.NewMatcher(&verboseSearcher{inner: indexClient, threshold: threshold}, matchCfg, logger)

	bar := newItemBar(len(p.InterestItems))
	results := make(matching.MatchResult, len(p.InterestItems))
	for i, item := range p.InterestItems {
		if err := ctx.Err(); err != nil {
			return err
		}

		promos, err := matcher.MatchItem(ctx, item)
		if err != nil {
			return fmt.Errorf("match %q: %w", item.NormalizedName, err)
		}
		if promos == nil {
			promos = []matching.PromoRecord{}
		}
		results[item.NormalizedName] = promos

		printItemResult(item, promos)
		_ = bar.Add(1)

		if i < len(p.InterestItems)-1 {
			time.Sleep(matchCfg.ItemDelay)
		}
	}
	fmt.Println()

	printMatchSummary(results)

	if skipGen {
		return nil
	}

	generator, err := genai.NewClient(genai.Config{
		APIKey:      cfg.Generation.APIKey,
		Model:       cfg.Generation.Model,
		BaseURL:     cfg.Generation.BaseURL,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create generation client: %w", err)
	}

	s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Generating briefing..."
	s.Writer = os.Stderr
	s.Start()

	raw, err := generator.Generate(ctx, recommend.SystemPrompt, recommend.BuildContext(p, results))
	s.Stop()
	if err != nil {
		return fmt.Errorf("generate briefing: %w", err)
	}

	briefing, err := recommend.ParseBriefing(raw, time.Now())
	if err != nil {
		return fmt.Errorf("parse briefing: %w", err)
	}

	printBriefing(briefing)
	return nil
}

func newItemBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("matching"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("items"),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
