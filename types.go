package main

import "time"

// Post is a single feed entry normalized for summarization
type Post struct {
	Title     string
	Author    string
	URL       string
	Published time.Time
}

// Section identifies one of the five digest sections
type Section string

const (
	SectionBreakingNews  Section = "breaking_news"
	SectionDeepDive      Section = "deep_dive"
	SectionFactsAndStats Section = "facts_and_stats"
	SectionFunStuff      Section = "fun_stuff"
	SectionQuestions     Section = "questions"
)

// DisplayOrder is the order sections are requested from the model and stored in history.
var DisplayOrder = []Section{
	SectionBreakingNews,
	SectionDeepDive,
	SectionFactsAndStats,
	SectionFunStuff,
	SectionQuestions,
}

// DispatchOrder is the order sections are delivered as chat messages.
var DispatchOrder = []Section{
	SectionBreakingNews,
	SectionFactsAndStats,
	SectionDeepDive,
	SectionFunStuff,
	SectionQuestions,
}

var sectionTitles = map[Section]string{
	SectionBreakingNews:  "📰 BREAKING NEWS & TRADES",
	SectionDeepDive:      "🧠 DEEP DIVE ANALYSIS",
	SectionFactsAndStats: "📊 FACTS & FIGURES",
	SectionFunStuff:      "🎯 HOOPS NERD TIME",
	SectionQuestions:     "🤔 QUESTIONS TO PONDER",
}

// Title returns the display title used as the message heading
func (s Section) Title() string {
	return sectionTitles[s]
}

// Digest is the five-section summary produced once per run
type Digest struct {
	BreakingNews  string `json:"breaking_news"`
	DeepDive      string `json:"deep_dive"`
	FactsAndStats string `json:"facts_and_stats"`
	FunStuff      string `json:"fun_stuff"`
	Questions     string `json:"questions"`
}

// Get returns the content of a section
func (d Digest) Get(s Section) string {
	switch s {
	case SectionBreakingNews:
		return d.BreakingNews
	case SectionDeepDive:
		return d.DeepDive
	case SectionFactsAndStats:
		return d.FactsAndStats
	case SectionFunStuff:
		return d.FunStuff
	case SectionQuestions:
		return d.Questions
	}
	return ""
}

// HistoryRecord is one persisted digest snapshot
type HistoryRecord struct {
	Timestamp  string `json:"timestamp"`
	PostsCount int    `json:"posts_count"`
	Sections   Digest `json:"sections"`
	Filename   string `json:"-"`
}

// ProcessingStatus represents the outcome status of a run
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusSkipped ProcessingStatus = "skipped"
	StatusError   ProcessingStatus = "error"
)

// RunResult tracks the outcome of one fetch-summarize-send cycle
type RunResult struct {
	Status       ProcessingStatus
	PostsCount   int
	Outcome      ParseKind
	HistoryFile  string
	MessagesSent int
	Error        error
}
