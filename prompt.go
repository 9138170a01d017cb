package main

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPosts renders posts as numbered lines for the user prompt, keeping
// at most maxPosts of them.
func FormatPosts(posts []Post, maxPosts int) string {
	if maxPosts <= 0 {
		maxPosts = defaultMaxPosts
	}
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}

	lines := make([]string, 0, len(posts))
	for i, post := range posts {
		lines = append(lines, fmt.Sprintf("%d. [%s UTC] %s", i+1, post.Published.UTC().Format("15:04"), post.Title))
	}
	return strings.Join(lines, "\n")
}

// renderUserPrompt fills the template variables of the user prompt
func renderUserPrompt(template, postsText string, hours int) string {
	prompt := strings.ReplaceAll(template, hoursVariable, strconv.Itoa(hours))
	return strings.ReplaceAll(prompt, postsVariable, postsText)
}
