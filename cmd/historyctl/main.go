package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const historyFileLayout = "2006-01-02_150405"

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: historyctl <prune|remove-duplicates> <history-directory> [days]")
	}

	command := os.Args[1]
	historyDir := os.Args[2]

	switch command {
	case "prune":
		if len(os.Args) < 4 {
			log.Fatal("Usage: historyctl prune <history-directory> <days>")
		}
		days, err := strconv.Atoi(os.Args[3])
		if err != nil || days <= 0 {
			log.Fatalf("Invalid number of days %q", os.Args[3])
		}
		removed, err := prune(historyDir, time.Now().AddDate(0, 0, -days))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Removed %d records older than %d days\n", removed, days)
	case "remove-duplicates":
		if err := removeDuplicates(historyDir, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// historyFiles returns the record files in dir, oldest first
func historyFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// recordTime parses the run time encoded in a record filename
func recordTime(path string) (time.Time, bool) {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	t, err := time.ParseInLocation(historyFileLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func prune(historyDir string, cutoff time.Time) (int, error) {
	files, err := historyFiles(historyDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, file := range files {
		t, ok := recordTime(file)
		if !ok {
			log.Printf("Skipping %s: not a history record name", filepath.Base(file))
			continue
		}
		if !t.Before(cutoff) {
			continue
		}
		if err := os.Remove(file); err != nil {
			log.Printf("Error removing %s: %v", file, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// sectionsHash fingerprints the digest text of a record, ignoring its metadata
func sectionsHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	var record struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(record.Sections) == 0 {
		return "", fmt.Errorf("%s has no sections", path)
	}

	var sections map[string]string
	if err := json.Unmarshal(record.Sections, &sections); err != nil {
		return "", fmt.Errorf("parsing sections of %s: %w", path, err)
	}
	keys := make([]string, 0, len(sections))
	for k := range sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s\x00%s\x00", k, sections[k])
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:8], nil
}

func removeDuplicates(historyDir string, reader *bufio.Reader, out io.Writer) error {
	files, err := historyFiles(historyDir)
	if err != nil {
		return err
	}

	hashToFiles := make(map[string][]string)
	var hashes []string
	for _, file := range files {
		hash, err := sectionsHash(file)
		if err != nil {
			log.Printf("Error processing %s: %v", file, err)
			continue
		}
		if _, ok := hashToFiles[hash]; !ok {
			hashes = append(hashes, hash)
		}
		hashToFiles[hash] = append(hashToFiles[hash], file)
	}

	totalRemoved := 0
	for _, hash := range hashes {
		group := hashToFiles[hash]
		if len(group) <= 1 {
			continue
		}

		fmt.Fprintf(out, "\nFound %d identical digests with hash %s:\n", len(group), hash)
		for i, file := range group {
			fileName := filepath.Base(file)
			if i == 0 {
				fmt.Fprintf(out, "  KEEP: %s\n", fileName)
				continue
			}

			if confirmDelete(reader, out, file) {
				if err := os.Remove(file); err != nil {
					log.Printf("Error removing %s: %v", file, err)
				} else {
					totalRemoved++
					fmt.Fprintf(out, "  REMOVED: %s\n", fileName)
				}
			} else {
				fmt.Fprintf(out, "  SKIP: %s\n", fileName)
			}
		}
	}

	fmt.Fprintf(out, "\nRemoved %d duplicate records\n", totalRemoved)
	return nil
}

func confirmDelete(reader *bufio.Reader, out io.Writer, path string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			if err != io.EOF {
				log.Printf("Error reading input: %v", err)
			}
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Fprintln(out, "  Please enter y or n.")
			if err != nil {
				return false
			}
		}
	}
}
