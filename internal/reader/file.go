package reader

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kompaudit/audit-planner/internal/store/model"
)

const (
	// contextLines is how many lines around a keyword hit are kept.
	contextLines = 3
	// maxFilesPerArtifact bounds directory walks.
	maxFilesPerArtifact = 200
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "with": {}, "must": {},
	"shall": {}, "should": {}, "not": {}, "any": {}, "all": {}, "are": {},
	"have": {}, "has": {}, "been": {}, "its": {}, "this": {}, "when": {},
	"such": {}, "may": {}, "can": {}, "will": {}, "from": {}, "than": {},
}

var affirmMarkers = []string{"true", "enabled", "allow", "always"}
var negateMarkers = []string{"false", "disabled", "deny", "never"}

// FileReader extracts evidence from artifacts whose locator is a path on
// the local filesystem. It works for a single file or a directory tree.
type FileReader struct {
	maxChars int
}

func NewFileReader(maxChars int) *FileReader {
	return &FileReader{maxChars: maxChars}
}

func (r *FileReader) Read(ctx context.Context, artifact *model.Artifact, item *model.RuleItem) (Evidence, error) {
	fi, err := os.Stat(artifact.Locator)
	if err != nil {
		return Evidence{}, fmt.Errorf("reading artifact %q: %w", artifact.Name, err)
	}

	keywords := Keywords(item)

	var files []string
	if fi.IsDir() {
		err = filepath.WalkDir(artifact.Locator, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != artifact.Locator {
					return filepath.SkipDir
				}
				return nil
			}
			if len(files) >= maxFilesPerArtifact {
				return filepath.SkipAll
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return Evidence{}, fmt.Errorf("walking artifact %q: %w", artifact.Name, err)
		}
	} else {
		files = []string{artifact.Locator}
	}

	var ev Evidence
	total := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return Evidence{}, err
		}
		snippet, err := extractSnippet(path, keywords)
		if err != nil {
			return Evidence{}, err
		}
		if snippet == "" {
			continue
		}
		source := path
		if rel, err := filepath.Rel(artifact.Locator, path); err == nil && rel != "." {
			source = rel
		}
		ev.Snippets = append(ev.Snippets, Snippet{Source: source, Content: snippet})
		total += len(snippet)
		if r.maxChars > 0 && total >= r.maxChars {
			break
		}
	}

	ev.Conflicting = conflicting(ev.Snippets)
	return ev, nil
}

// Keywords derives the search terms for a rule item from its text and
// category, dropping short words and stopwords.
func Keywords(item *model.RuleItem) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(word string) {
		word = strings.ToLower(strings.Trim(word, ".,;:()\"'"))
		if len(word) < 4 {
			return
		}
		if _, ok := stopwords[word]; ok {
			return
		}
		if _, ok := seen[word]; ok {
			return
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	for _, w := range strings.Fields(item.Text) {
		add(w)
	}
	add(item.Category)
	return out
}

func extractSnippet(path string, keywords []string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		// Binary or oversized files are skipped, not fatal.
		return "", nil
	}

	return selectLines(lines, keywords), nil
}

// selectLines keeps the lines containing a keyword plus a few lines of
// surrounding context, separating non-adjacent regions with ellipses.
func selectLines(lines []string, keywords []string) string {
	keep := make(map[int]struct{})
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				for j := i - contextLines; j <= i+contextLines; j++ {
					if j >= 0 && j < len(lines) {
						keep[j] = struct{}{}
					}
				}
				break
			}
		}
	}
	if len(keep) == 0 {
		return ""
	}

	var b strings.Builder
	prev := -2
	for i, line := range lines {
		if _, ok := keep[i]; !ok {
			continue
		}
		if prev >= 0 && i != prev+1 {
			b.WriteString("...\n")
		}
		b.WriteString(line)
		b.WriteByte('\n')
		prev = i
	}
	return b.String()
}

// conflicting reports evidence that both affirms and negates the same
// concern, a signal the judges tend to get wrong.
func conflicting(snippets []Snippet) bool {
	var affirm, negate bool
	for _, s := range snippets {
		lower := strings.ToLower(s.Content)
		for _, m := range affirmMarkers {
			if strings.Contains(lower, m) {
				affirm = true
				break
			}
		}
		for _, m := range negateMarkers {
			if strings.Contains(lower, m) {
				negate = true
				break
			}
		}
	}
	return affirm && negate
}
