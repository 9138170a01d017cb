package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// recordingSender records every call in order, including pauses, so tests
// can check where the pacing waits fall.
type recordingSender struct {
	events []string
	texts  []string
	failOn int // 1-based send attempt that fails; 0 never fails
}

func (r *recordingSender) SendMessage(ctx context.Context, text string) error {
	r.events = append(r.events, "send")
	if r.failOn > 0 && r.sendCount() == r.failOn {
		return &HTTPError{StatusCode: 400, URL: "https://api.telegram.test/bot<token>/sendMessage"}
	}
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingSender) sendCount() int {
	n := 0
	for _, e := range r.events {
		if e == "send" {
			n++
		}
	}
	return n
}

func newTestDispatcher(sender *recordingSender, maxLength int) *Dispatcher {
	d := NewDispatcher(sender, TelegramSettings{Pacing: time.Second, MaxMessageLength: maxLength})
	d.wait = func(ctx context.Context, dur time.Duration) error {
		if dur != time.Second {
			return errors.New("unexpected pacing")
		}
		sender.events = append(sender.events, "wait")
		return nil
	}
	return d
}

func TestSectionOrders(t *testing.T) {
	display := []Section{SectionBreakingNews, SectionDeepDive, SectionFactsAndStats, SectionFunStuff, SectionQuestions}
	dispatch := []Section{SectionBreakingNews, SectionFactsAndStats, SectionDeepDive, SectionFunStuff, SectionQuestions}

	for i := range display {
		if DisplayOrder[i] != display[i] {
			t.Errorf("DisplayOrder[%d] = %s, want %s", i, DisplayOrder[i], display[i])
		}
		if DispatchOrder[i] != dispatch[i] {
			t.Errorf("DispatchOrder[%d] = %s, want %s", i, DispatchOrder[i], dispatch[i])
		}
	}
	for _, s := range DisplayOrder {
		if s.Title() == "" {
			t.Errorf("section %s has no title", s)
		}
	}
}

func TestDispatchSkipsEmptySections(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender, 0)

	digest := Digest{BreakingNews: "X", DeepDive: "", FactsAndStats: "Y", FunStuff: "", Questions: "Z"}
	sent, err := d.Dispatch(context.Background(), digest)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if sent != 3 {
		t.Errorf("Dispatch() sent %d, want 3", sent)
	}

	wantTexts := []string{
		"📰 BREAKING NEWS & TRADES\n\nX",
		"📊 FACTS & FIGURES\n\nY",
		"🤔 QUESTIONS TO PONDER\n\nZ",
	}
	if len(sender.texts) != len(wantTexts) {
		t.Fatalf("sent %d messages, want %d", len(sender.texts), len(wantTexts))
	}
	for i, want := range wantTexts {
		if sender.texts[i] != want {
			t.Errorf("message %d = %q, want %q", i, sender.texts[i], want)
		}
	}

	wantEvents := "send,wait,send,wait,send"
	if got := strings.Join(sender.events, ","); got != wantEvents {
		t.Errorf("events = %s, want %s", got, wantEvents)
	}
}

func TestDispatchKeepsExistingTitle(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender, 0)

	content := "  📰 BREAKING NEWS & TRADES\n\nHarden to Cleveland"
	if _, err := d.Dispatch(context.Background(), Digest{BreakingNews: content}); err != nil {
		t.Fatal(err)
	}
	if len(sender.texts) != 1 || sender.texts[0] != content {
		t.Errorf("texts = %q, want content sent verbatim", sender.texts)
	}
	if strings.Join(sender.events, ",") != "send" {
		t.Errorf("events = %v, want a single send without pacing", sender.events)
	}
}

func TestDispatchStopsOnFirstFailure(t *testing.T) {
	sender := &recordingSender{failOn: 2}
	d := newTestDispatcher(sender, 0)

	digest := Digest{BreakingNews: "X", FactsAndStats: "Y", Questions: "Z"}
	sent, err := d.Dispatch(context.Background(), digest)
	if err == nil {
		t.Fatal("Dispatch() expected error")
	}
	if sent != 1 {
		t.Errorf("Dispatch() sent %d, want 1", sent)
	}
	if sender.sendCount() != 2 {
		t.Errorf("send attempts = %d, want 2 (no third attempt)", sender.sendCount())
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 400 {
		t.Errorf("error = %v, want wrapped *HTTPError 400", err)
	}
	if !strings.Contains(err.Error(), string(SectionFactsAndStats)) {
		t.Errorf("error %q should name the failed section", err)
	}
}

func TestDispatchEmptyDigest(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender, 0)

	sent, err := d.Dispatch(context.Background(), Digest{})
	if err != nil || sent != 0 || len(sender.events) != 0 {
		t.Errorf("Dispatch(empty) = %d, %v, events %v", sent, err, sender.events)
	}
}

func TestDispatchCancelledDuringPacing(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, TelegramSettings{Pacing: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	d.sender = senderFunc(func(ctx context.Context, text string) error {
		cancel()
		return sender.SendMessage(ctx, text)
	})

	sent, err := d.Dispatch(ctx, Digest{BreakingNews: "X", Questions: "Z"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Dispatch() error = %v, want context.Canceled", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
}

type senderFunc func(ctx context.Context, text string) error

func (f senderFunc) SendMessage(ctx context.Context, text string) error { return f(ctx, text) }

func TestBuildMessagesSplitsOversizedSections(t *testing.T) {
	d := newTestDispatcher(&recordingSender{}, 50)

	line := strings.Repeat("a", 20)
	content := strings.Join([]string{line, line, line, line}, "\n")
	messages := d.BuildMessages(Digest{DeepDive: content, FunStuff: "short"})

	if len(messages) < 3 {
		t.Fatalf("got %d messages, want the deep dive split in several", len(messages))
	}
	if !strings.HasPrefix(messages[0].Text, SectionDeepDive.Title()) {
		t.Errorf("first chunk should carry the title, got %q", messages[0].Text)
	}
	last := messages[len(messages)-1]
	if last.Section != SectionFunStuff {
		t.Errorf("last message section = %s, want %s", last.Section, SectionFunStuff)
	}

	var rebuilt []string
	for _, m := range messages {
		if utf16Len(m.Text) > 50 {
			t.Errorf("message %q exceeds limit", m.Text)
		}
		if m.Section == SectionDeepDive {
			rebuilt = append(rebuilt, m.Text)
		}
	}
	if got := strings.Join(rebuilt, "\n"); got != SectionDeepDive.Title()+"\n\n"+content {
		t.Errorf("chunks do not reassemble to the original:\n%s", got)
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"disabled", strings.Repeat("x", 10), 0, []string{strings.Repeat("x", 10)}},
		{"fits", "hello", 5, []string{"hello"}},
		{"break at newline", "abc\ndef\nghi", 8, []string{"abc\ndef", "ghi"}},
		{"hard split long line", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"surrogate pairs count double", "🏀🏀🏀", 4, []string{"🏀🏀", "🏀"}},
		{"blank lines between chunks", "para one line\n\npara two line\n\n\npara three", 15, []string{"para one line", "para two line", "para three"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("splitMessage(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
			for _, chunk := range got {
				if !utf8.ValidString(chunk) {
					t.Errorf("chunk %q is not valid UTF-8", chunk)
				}
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() error = %v, want context.Canceled", err)
	}
}
