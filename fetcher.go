package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"
)

const (
	untitledPost  = "No title"
	unknownAuthor = "Unknown"
)

// htmlTag matches an opening or closing element such as <b> or </i>
var htmlTag = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)

// PostCollector returns the posts a digest is written from
type PostCollector interface {
	Collect(ctx context.Context) ([]Post, error)
}

// FeedCollector queries syndication feeds and merges their entries
type FeedCollector struct {
	parser    *gofeed.Parser
	converter *md.Converter
	sources   []FeedSource
	window    time.Duration
	now       func() time.Time
}

// FeedSummary describes a single feed for diagnostics
type FeedSummary struct {
	Title      string
	EntryCount int
	Entries    []Post
}

// NewFeedCollector creates a collector for the configured feed sources
func NewFeedCollector(settings *Settings) *FeedCollector {
	parser := gofeed.NewParser()
	parser.UserAgent = settings.UserAgent
	parser.Client = &http.Client{Timeout: settings.HTTPTimeout}

	return &FeedCollector{
		parser:    parser,
		converter: md.NewConverter("", true, &md.Options{EscapeMode: "disabled"}),
		sources:   settings.Feeds,
		window:    time.Duration(settings.WindowHours) * time.Hour,
		now:       time.Now,
	}
}

// Collect fetches every source in order and returns the posts published
// inside the window, newest first. The first source to list a link wins.
// A source that cannot be fetched or parsed contributes nothing.
func (c *FeedCollector) Collect(ctx context.Context) ([]Post, error) {
	now := c.now().UTC()
	cutoff := now.Add(-c.window)

	seen := make(map[string]struct{})
	var posts []Post

	for _, src := range c.sources {
		log.Printf("→ Fetching %s", src.Name)
		feed, err := c.parser.ParseURLWithContext(src.URL, ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Printf("Warning: skipping feed %s: %v", src.Name, err)
			continue
		}

		kept := 0
		for _, item := range feed.Items {
			post, ok := c.normalize(item, now)
			if !ok {
				continue
			}
			if post.Published.Before(cutoff) {
				continue
			}
			if _, dup := seen[post.URL]; dup {
				continue
			}
			seen[post.URL] = struct{}{}
			posts = append(posts, post)
			kept++
		}
		debugLog("feed %s: %d entries, %d new in window", src.Name, len(feed.Items), kept)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Published.After(posts[j].Published)
	})

	return posts, nil
}

// Inspect fetches one source and returns its title, entry count and the
// first limit entries without any filtering.
func (c *FeedCollector) Inspect(ctx context.Context, src FeedSource, limit int) (*FeedSummary, error) {
	feed, err := c.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.URL, err)
	}

	summary := &FeedSummary{
		Title:      feed.Title,
		EntryCount: len(feed.Items),
	}
	now := c.now().UTC()
	for _, item := range feed.Items {
		if len(summary.Entries) >= limit {
			break
		}
		if post, ok := c.normalize(item, now); ok {
			summary.Entries = append(summary.Entries, post)
		}
	}
	return summary, nil
}

// normalize converts a gofeed.Item to a Post. Items without a link are rejected.
func (c *FeedCollector) normalize(item *gofeed.Item, now time.Time) (Post, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return Post{}, false
	}

	published := now
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	}

	return Post{
		Title:     c.cleanTitle(item.Title),
		Author:    itemAuthor(item),
		URL:       link,
		Published: published,
	}, true
}

// cleanTitle strips markup some feeds leave in entry titles. Titles without
// HTML elements are returned as published, apart from trimming.
func (c *FeedCollector) cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if htmlTag.MatchString(title) {
		if text, err := c.converter.ConvertString(title); err == nil {
			title = strings.Join(strings.Fields(text), " ")
		}
	}
	if title == "" {
		return untitledPost
	}
	return title
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, person := range item.Authors {
		if person != nil && person.Name != "" {
			return person.Name
		}
	}
	return unknownAuthor
}
