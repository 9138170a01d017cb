package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
)

// DigestWriter turns the formatted post list into a digest
type DigestWriter interface {
	Generate(ctx context.Context, postsText string) (*ParsedDigest, error)
}

// DigestProcessor handles the main workflow: collect, summarize, record, send
type DigestProcessor struct {
	collector  PostCollector
	generator  DigestWriter
	dispatcher *Dispatcher
	history    *HistoryStore
	settings   *Settings
	out        io.Writer
}

// NewDigestProcessor wires the pipeline from configuration. Credentials are
// checked here, before any network call or file write. With dryRun the
// digest is printed instead of sent, nothing is added to history and no
// Telegram credentials are needed.
func NewDigestProcessor(config *Config, dryRun bool) (*DigestProcessor, error) {
	if err := config.Credentials.Validate(!dryRun); err != nil {
		return nil, err
	}
	if err := config.WriteDefaultSettings(); err != nil {
		return nil, err
	}

	generator, err := NewDigestGenerator(config)
	if err != nil {
		return nil, fmt.Errorf("creating digest generator: %w", err)
	}

	p := &DigestProcessor{
		collector: NewFeedCollector(config.Settings),
		generator: generator,
		settings:  config.Settings,
		out:       os.Stdout,
	}
	if !dryRun {
		client := NewTelegramClient(config.Settings, config.Credentials.TelegramBotToken, config.Credentials.TelegramChatID)
		p.dispatcher = NewDispatcher(client, config.Settings.Telegram)
		p.history = NewHistoryStore(config.Settings.HistoryDirectory)
	}
	return p, nil
}

// Run performs one fetch-summarize-send cycle
func (p *DigestProcessor) Run(ctx context.Context) RunResult {
	log.Printf("→ Fetching news from %d feeds...", len(p.settings.Feeds))
	posts, err := p.collector.Collect(ctx)
	if err != nil {
		return RunResult{Status: StatusError, Error: fmt.Errorf("collecting posts: %w", err)}
	}
	log.Printf("  Found %d posts", len(posts))

	result := RunResult{PostsCount: len(posts)}
	if len(posts) == 0 {
		log.Printf("No posts found. Exiting.")
		result.Status = StatusSkipped
		return result
	}

	postsText := FormatPosts(posts, p.settings.MaxPosts)
	parsed, err := p.generator.Generate(ctx, postsText)
	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Errorf("generating digest: %w", err)
		return result
	}
	result.Outcome = parsed.Kind

	if p.history != nil {
		filename, err := p.history.Save(parsed.Digest, len(posts))
		if err != nil {
			log.Printf("Warning: history not saved: %v", err)
		} else {
			log.Printf("✓ Saved history: %s", filename)
			result.HistoryFile = filename
		}
	}

	if p.dispatcher == nil {
		printDigest(p.out, parsed.Digest)
		result.Status = StatusSuccess
		return result
	}

	sent, err := p.dispatcher.Dispatch(ctx, parsed.Digest)
	result.MessagesSent = sent
	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Errorf("dispatching digest: %w", err)
		return result
	}

	result.Status = StatusSuccess
	return result
}

// printDigest writes the digest in display order, used for dry runs
func printDigest(w io.Writer, digest Digest) {
	for _, section := range DisplayOrder {
		content := digest.Get(section)
		if content == "" {
			continue
		}
		fmt.Fprintf(w, "%s\n\n%s\n\n", section.Title(), content)
	}
}
