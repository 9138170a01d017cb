package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// OutboundMessage is one chat message produced from a digest section
type OutboundMessage struct {
	Section Section
	Text    string
}

// Dispatcher delivers a digest as a paced sequence of messages
type Dispatcher struct {
	sender    MessageSender
	order     []Section
	pacing    time.Duration
	maxLength int
	wait      func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher using the configured pacing and message ceiling
func NewDispatcher(sender MessageSender, settings TelegramSettings) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		order:     DispatchOrder,
		pacing:    settings.Pacing,
		maxLength: settings.MaxMessageLength,
		wait:      sleepContext,
	}
}

// BuildMessages lays out the digest in dispatch order. Empty sections are
// skipped; every other section gets its title unless it already starts with it.
func (d *Dispatcher) BuildMessages(digest Digest) []OutboundMessage {
	var messages []OutboundMessage
	for _, section := range d.order {
		content := digest.Get(section)
		if content == "" {
			continue
		}

		title := section.Title()
		text := content
		if !strings.HasPrefix(strings.TrimSpace(content), title) {
			text = title + "\n\n" + content
		}

		for _, chunk := range splitMessage(text, d.maxLength) {
			messages = append(messages, OutboundMessage{Section: section, Text: chunk})
		}
	}
	return messages
}

// Dispatch sends the digest one message at a time, pausing between
// messages. The first failed send aborts the rest. It returns the number of
// messages delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, digest Digest) (int, error) {
	messages := d.BuildMessages(digest)
	log.Printf("→ Sending %d messages...", len(messages))

	sent := 0
	for i, msg := range messages {
		if i > 0 && d.pacing > 0 {
			if err := d.wait(ctx, d.pacing); err != nil {
				return sent, err
			}
		}

		if err := d.sender.SendMessage(ctx, msg.Text); err != nil {
			return sent, fmt.Errorf("sending %s (message %d/%d): %w", msg.Section, i+1, len(messages), err)
		}
		sent++
		debugLog("sent %s (%d chars)", msg.Section, len(msg.Text))
	}

	log.Printf("✓ Sent %d messages", sent)
	return sent, nil
}

// splitMessage cuts text into chunks of at most limit UTF-16 code units
// (the unit Telegram counts in), preferring to break after a newline.
// Newlines at either end of a chunk are dropped.
// A limit of zero or less disables splitting.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || utf16Len(text) <= limit {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		size, end, lastBreak := 0, start, -1
		for end < len(runes) {
			w := runeUTF16Width(runes[end])
			if size+w > limit {
				break
			}
			size += w
			if runes[end] == '\n' {
				lastBreak = end
			}
			end++
		}
		if end < len(runes) && lastBreak > start {
			end = lastBreak + 1
		}
		if end == start {
			end = start + 1
		}

		chunk := strings.Trim(string(runes[start:end]), "\n")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}
	return chunks
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUTF16Width(r)
	}
	return n
}

func runeUTF16Width(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
