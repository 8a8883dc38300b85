// Command translate-json translates the string values of a JSON document
// through a LibreTranslate-compatible backend, preserving structure, key
// order, and non-translatable values.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/khiemphamm/translate-json/internal/cache"
	"github.com/khiemphamm/translate-json/internal/config"
	"github.com/khiemphamm/translate-json/internal/jsontree"
	"github.com/khiemphamm/translate-json/internal/persistence"
	"github.com/khiemphamm/translate-json/internal/ratelimit"
	"github.com/khiemphamm/translate-json/internal/session"
	"github.com/khiemphamm/translate-json/internal/translator"
	"github.com/khiemphamm/translate-json/pkg/file"
	"github.com/khiemphamm/translate-json/pkg/icron"
	"github.com/khiemphamm/translate-json/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	envFile      string
	settingsFile string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "translate-json",
		Short:         "Translate JSON string values through a translation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine; environment variables still apply.
			if err := godotenv.Load(flags.envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load env file %s: %w", flags.envFile, err)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "environment file to load")
	cmd.PersistentFlags().StringVar(&flags.settingsFile, "settings", "", "optional YAML settings file overriding the environment")

	cmd.AddCommand(newTranslateCmd(flags))
	cmd.AddCommand(newLanguagesCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newCacheCmd(flags))
	return cmd
}

// loadConfig builds the full configuration from environment plus the optional
// settings file.
func loadConfig(flags *rootFlags, extra ...config.Option) (*config.Config, error) {
	opts := make([]config.Option, 0, len(extra)+1)
	if flags.settingsFile != "" {
		settings, err := config.LoadSettingsFile(flags.settingsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithSettings(settings))
	}
	opts = append(opts, extra...)
	return config.NewFromEnv(opts...)
}

// backendFromEnv builds just the backend client for commands that do not need
// the full (and stricter) translation configuration.
func backendFromEnv() (*translator.Client, error) {
	cfg := &translator.Config{
		APIURL:  os.Getenv("BACKEND_API_URL"),
		APIKey:  os.Getenv("BACKEND_API_KEY"),
		Timeout: 30,
	}
	return translator.NewClient(cfg)
}

func newTranslateCmd(flags *rootFlags) *cobra.Command {
	var (
		outputPath string
		patchPath  string
		sourceLang string
		targetLang string
		noPatch    bool
	)

	cmd := &cobra.Command{
		Use:   "translate <input.json>",
		Short: "Translate a JSON file and write the translated document and its patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := []config.Option{}
			if sourceLang != "" || targetLang != "" {
				extra = append(extra, func(c *config.Config) {
					if sourceLang != "" {
						c.Translate.SourceLanguage = sourceLang
					}
					if targetLang != "" {
						c.Translate.TargetLanguage = targetLang
					}
				})
			}
			cfg, err := loadConfig(flags, extra...)
			if err != nil {
				return err
			}
			log.InitLogger(log.ParseLevel(cfg.System.LogLevel))
			if cfg.System.LogFile != "" {
				fileLogger, err := log.NewFileLogger(cfg.System.LogFile, log.ParseLevel(cfg.System.LogLevel))
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer fileLogger.Close()
				log.SetLogger(fileLogger.Logger)
			}

			inputPath := args[0]
			if outputPath == "" {
				outputPath = file.InsertSuffix(inputPath, "translated")
			}
			if patchPath == "" {
				patchPath = file.ReplaceExt(inputPath, "patch.json")
			}

			return runTranslate(cmd.Context(), cfg, inputPath, outputPath, patchPath, !noPatch)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "translated output path (default <input>.translated.json)")
	cmd.Flags().StringVar(&patchPath, "patch-output", "", "patch output path (default <input>.patch.json)")
	cmd.Flags().StringVar(&sourceLang, "source", "", "source language code or \"auto\" (overrides SOURCE_LANGUAGE)")
	cmd.Flags().StringVar(&targetLang, "target", "", "target language code (overrides TARGET_LANGUAGE)")
	cmd.Flags().BoolVar(&noPatch, "no-patch", false, "skip writing the patch file")
	return cmd
}

func runTranslate(parent context.Context, cfg *config.Config, inputPath, outputPath, patchPath string, writePatch bool) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	tree, err := jsontree.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", inputPath, err)
	}

	store, err := persistence.NewSQLiteStore(cfg.Cache.DBPath)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer store.Close()

	translationCache := cache.New(store, cfg.Cache.FastCapacity, cfg.Cache.TTL)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	client, err := translator.NewClient(&translator.Config{
		APIURL:  cfg.Backend.APIURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		return err
	}

	manager := session.NewManager(client, translationCache, limiter,
		session.WithCallTimeout(time.Duration(cfg.Backend.Timeout)*time.Second))

	// Periodic expiry sweep keeps both cache tiers bounded during long runs.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Cache.CleanupCron, func() {
		fast, durable := translationCache.CleanupExpired(context.Background())
		log.Info("Cache sweep removed %d fast-tier and %d durable entries", fast, durable)
	}); err != nil {
		return fmt.Errorf("schedule cache cleanup: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	if info, err := icron.GetTriggerInfo(cfg.Cache.CleanupCron, time.Now()); err == nil {
		log.Debug("Next cache sweep at %s (in %s)", info.Next.Format(time.RFC3339), info.TimeUntilNext.Round(time.Second))
	}

	// Ctrl-C pauses the session cooperatively instead of killing mid-write.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := manager.Start(ctx, tree, session.Config{
		SourceLanguage:   cfg.Translate.SourceLanguage,
		TargetLanguage:   cfg.Translate.TargetLanguage,
		FallbackLanguage: cfg.Translate.FallbackLanguage,
		BatchSize:        cfg.Translate.BatchSize,
		MaxRetries:       cfg.Translate.MaxRetries,
	})
	if err != nil {
		return err
	}
	color.Cyan("Session %s: %d unique strings in %d batches", sess.ID, sess.TotalStrings, len(sess.Batches))

	reportProgress(manager)

	final := manager.Snapshot()
	switch final.Status {
	case session.StatusPaused:
		color.Yellow("Interrupted: %d/%d translated, session left resumable",
			final.TranslatedCount, final.TotalStrings)
		return fmt.Errorf("translation interrupted")
	case session.StatusError:
		return fmt.Errorf("translation session failed")
	}

	out, err := jsontree.Marshal(final.TranslatedTree)
	if err != nil {
		return fmt.Errorf("encode translated document: %w", err)
	}
	if err := os.WriteFile(outputPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if writePatch && final.Patch != nil {
		patch, err := jsontree.Marshal(final.Patch)
		if err != nil {
			return fmt.Errorf("encode patch: %w", err)
		}
		if err := os.WriteFile(patchPath, append(patch, '\n'), 0o644); err != nil {
			return fmt.Errorf("write patch: %w", err)
		}
	}

	printSummary(final, translationCache.Stats(), outputPath, patchPath, writePatch)
	return nil
}

// reportProgress polls the session until the run finishes, printing batch
// progress as it moves.
func reportProgress(manager *session.Manager) {
	done := make(chan struct{})
	go func() {
		manager.Wait(context.Background())
		close(done)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	lastDone := -1
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snapshot := manager.Snapshot()
			completed := snapshot.TranslatedCount + snapshot.SkippedCount + snapshot.ErrorCount
			if completed != lastDone {
				lastDone = completed
				fmt.Printf("\rProgress: %d/%d", completed, snapshot.TotalStrings)
			}
		}
	}
}

func printSummary(sess *session.Session, stats cache.Stats, outputPath, patchPath string, wrotePatch bool) {
	fmt.Print("\r")
	elapsed := sess.EndTime.Sub(sess.StartTime).Round(time.Millisecond)
	color.Green("Done in %s: %d translated, %d skipped, %d failed",
		elapsed, sess.TranslatedCount, sess.SkippedCount, sess.ErrorCount)
	if sess.ErrorCount > 0 {
		color.Yellow("%d strings kept their original text after exhausting retries", sess.ErrorCount)
	}
	fmt.Printf("Cache: %d hits, %d misses, %d promotions\n", stats.Hits, stats.Misses, stats.Promotions)
	fmt.Printf("Wrote %s\n", outputPath)
	if wrotePatch {
		fmt.Printf("Wrote %s\n", patchPath)
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the languages the backend supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendFromEnv()
			if err != nil {
				return err
			}
			languages, err := client.Languages(cmd.Context())
			if err != nil {
				return err
			}
			for _, lang := range languages {
				fmt.Printf("%-8s %s\n", lang.Code, lang.Name)
			}
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the translation backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendFromEnv()
			if err != nil {
				return err
			}
			if !client.HealthCheck(cmd.Context()) {
				return fmt.Errorf("backend at %s is not healthy", os.Getenv("BACKEND_API_URL"))
			}
			color.Green("Backend is healthy")
			return nil
		},
	}
}

func newCacheCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the durable translation cache",
	}

	openCache := func() (*cache.Cache, *persistence.SQLiteStore, error) {
		cfg, err := loadConfig(flags)
		if err != nil {
			return nil, nil, err
		}
		store, err := persistence.NewSQLiteStore(cfg.Cache.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache store: %w", err)
		}
		return cache.New(store, cfg.Cache.FastCapacity, cfg.Cache.TTL), store, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := openCache()
			if err != nil {
				return err
			}
			defer store.Close()
			_, removed := c.CleanupExpired(cmd.Context())
			color.Green("Removed %d expired entries", removed)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := openCache()
			if err != nil {
				return err
			}
			defer store.Close()
			c.Clear(cmd.Context())
			color.Green("Cache cleared")
			return nil
		},
	})
	return cmd
}
