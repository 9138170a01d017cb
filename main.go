package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile       string
	apiKey           string
	systemPromptPath string
	userPromptPath   string
	windowHours      int
	dryRun           bool
	debugMode        bool
	historyLimit     int
	feedEntries      int
)

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

var rootCmd = &cobra.Command{
	Use:           "nba-morning",
	Short:         "Daily r/nba digest delivered to Telegram",
	Long:          `Collects the last day of r/nba posts, writes a five-section digest with Claude and sends it to a Telegram chat.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			SetDebugMode(true)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		processor, err := NewDigestProcessor(config, dryRun)
		if err != nil {
			return err
		}

		log.Printf("🏀 NBA Morning - Starting...")
		result := processor.Run(cmd.Context())
		switch result.Status {
		case StatusSkipped:
			return nil
		case StatusError:
			log.Printf("❌ Failed after %d messages", result.MessagesSent)
			return result.Error
		}

		if dryRun {
			log.Printf("✅ Done (dry run, nothing sent)")
		} else {
			log.Printf("✅ Done! Check your Telegram.")
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent digests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		records, err := NewHistoryStore(config.Settings.HistoryDirectory).List(historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		for _, record := range records {
			fmt.Printf("%s  %d posts  %s\n", record.Filename, record.PostsCount, record.Timestamp)
			for _, section := range DisplayOrder {
				fmt.Printf("  %-16s %d chars\n", section, len(record.Sections.Get(section)))
			}
		}
		return nil
	},
}

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Check that the configured feeds are reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		collector := NewFeedCollector(config.Settings)
		failed := 0
		for _, src := range config.Settings.Feeds {
			fmt.Printf("\n%s (%s)\n", src.Name, src.URL)
			summary, err := collector.Inspect(cmd.Context(), src, feedEntries)
			if err != nil {
				fmt.Printf("  Error: %v\n", err)
				failed++
				continue
			}
			fmt.Printf("  Feed title: %s\n", summary.Title)
			fmt.Printf("  Total entries: %d\n", summary.EntryCount)
			for i, post := range summary.Entries {
				fmt.Printf("  %d. %s\n     Author: %s\n     Published: %s\n", i+1, post.Title, post.Author, post.Published.Format("2006-01-02 15:04 MST"))
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d feeds failed", failed, len(config.Settings.Feeds))
		}
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping [text]",
	Short: "Send a test message to the Telegram chat",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		creds := config.Credentials
		if creds.TelegramBotToken == "" || creds.TelegramChatID == "" {
			return fmt.Errorf("missing TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID")
		}

		text := "🏀 NBA Morning test message"
		if len(args) > 0 {
			text = args[0]
		}

		client := NewTelegramClient(config.Settings, creds.TelegramBotToken, creds.TelegramChatID)
		if err := client.SendMessage(cmd.Context(), text); err != nil {
			return err
		}
		fmt.Println("Sent!")
		return nil
	},
}

// loadConfig builds the Config from flags, settings file and environment
func loadConfig(cmd *cobra.Command) (*Config, error) {
	overrides := &ConfigOverrides{}
	if configFile != "" {
		overrides.SettingsPath = &configFile
	}
	if systemPromptPath != "" {
		overrides.SystemPromptPath = &systemPromptPath
	}
	if userPromptPath != "" {
		overrides.UserPromptPath = &userPromptPath
	}

	config, err := NewConfig(overrides)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		config.Credentials.AnthropicAPIKey = apiKey
	}
	if cmd.Flags().Changed("hours") {
		if windowHours <= 0 {
			return nil, fmt.Errorf("--hours must be positive")
		}
		config.Settings.WindowHours = windowHours
	}
	return config, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to settings YAML (default .nba-morning/settings.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (default $ANTHROPIC_API_KEY)")
	rootCmd.Flags().StringVar(&systemPromptPath, "system-prompt", "", "Path to custom system prompt file")
	rootCmd.Flags().StringVar(&userPromptPath, "user-prompt", "", "Path to custom user prompt template")
	rootCmd.Flags().IntVar(&windowHours, "hours", defaultHours, "Only include posts from the last N hours")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the digest instead of sending it")

	historyCmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "Number of records to show")
	feedsCmd.Flags().IntVar(&feedEntries, "entries", 5, "Number of entries to show per feed")

	rootCmd.AddCommand(historyCmd, feedsCmd, pingCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("Error: %v", err)
		stop()
		os.Exit(1)
	}
}
