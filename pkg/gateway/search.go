package gateway

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/filegate/filegate/pkg/operr"
	"github.com/filegate/filegate/pkg/policy"
	"github.com/filegate/filegate/pkg/resolve"
)

// SearchOptions control enumeration for both search operations.
// MaxResults of zero means no cap; ContextLines applies to content
// search only.
type SearchOptions struct {
	Recursive    bool
	MaxResults   int
	ContextLines int
}

// ContentMatch is one content-search hit. Context holds up to
// ContextLines lines on each side of the matching line, in file order,
// excluding the matching line itself.
type ContentMatch struct {
	Path       string   `json:"path"`
	LineNumber int      `json:"line_number"`
	LineText   string   `json:"line_text"`
	Context    []string `json:"context,omitempty"`
}

// SearchByName returns the paths of entries under base whose name matches
// the glob pattern. Matching runs against the entry name only, never the
// full path, and only against entries the policy filter admits.
func (g *Gateway) SearchByName(ctx context.Context, base, pattern string, opts SearchOptions) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, operr.New(operr.KindInvalidArguments, "invalid search pattern")
	}

	rp, err := g.validate(base, policy.ClassRead, false, policy.SizeUnknown)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0, 16)
	err = g.walkEntries(ctx, rp, base, opts.Recursive, func(rel string, entry fs.DirEntry) error {
		ok, err := doublestar.Match(pattern, entry.Name())
		if err != nil || !ok {
			return nil
		}
		matches = append(matches, filepath.Join(rp.Path, rel))
		if opts.MaxResults > 0 && len(matches) >= opts.MaxResults {
			return errStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// SearchByContent greps regular files under base for a regular
// expression, line by line. Files that exceed the size ceiling or sniff
// as binary are skipped, not failed: a search result is a set of text
// matches, never a partial error.
func (g *Gateway) SearchByContent(ctx context.Context, base, pattern string, opts SearchOptions) ([]ContentMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, operr.New(operr.KindInvalidArguments, "invalid search pattern")
	}

	rp, err := g.validate(base, policy.ClassRead, false, policy.SizeUnknown)
	if err != nil {
		return nil, err
	}

	matches := make([]ContentMatch, 0, 16)
	err = g.walkEntries(ctx, rp, base, opts.Recursive, func(rel string, entry fs.DirEntry) error {
		if !entry.Type().IsRegular() {
			return nil
		}
		full := filepath.Join(rp.Path, rel)
		hits, err := g.grepFile(full, base, re, opts.ContextLines)
		if err != nil {
			// Unreadable or concurrently removed files are skipped.
			return nil
		}
		for _, hit := range hits {
			matches = append(matches, hit)
			if opts.MaxResults > 0 && len(matches) >= opts.MaxResults {
				return errStopWalk
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// grepFile scans one file through a single handle: size and regularity
// are checked against the handle's own stat, and the MIME sniff reuses
// the same handle rewound to the start.
func (g *Gateway) grepFile(full, raw string, re *regexp.Regexp, contextLines int) ([]ContentMatch, error) {
	f, err := g.open(resolve.ResolvedPath{Path: full, Exists: true}, os.O_RDONLY, 0, raw)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, operr.Sanitize(raw, err)
	}
	if !st.Mode().IsRegular() {
		return nil, operr.New(operr.KindNotAFile, "target is not a regular file")
	}
	if err := g.policy.CheckSize(st.Size()); err != nil {
		return nil, err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, operr.Sanitize(raw, err)
	}
	if !isTextual(mime) {
		return nil, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, operr.Sanitize(raw, err)
	}

	var out []ContentMatch
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, operr.Sanitize(raw, err)
	}

	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		out = append(out, ContentMatch{
			Path:       full,
			LineNumber: i + 1,
			LineText:   line,
			Context:    contextAround(lines, i, contextLines),
		})
	}
	return out, nil
}

// contextAround collects up to n lines on each side of index i,
// excluding line i itself.
func contextAround(lines []string, i, n int) []string {
	if n <= 0 {
		return nil
	}
	lo := i - n
	if lo < 0 {
		lo = 0
	}
	hi := i + n
	if hi > len(lines)-1 {
		hi = len(lines) - 1
	}
	out := make([]string, 0, hi-lo)
	out = append(out, lines[lo:i]...)
	out = append(out, lines[i+1:hi+1]...)
	return out
}

// isTextual walks the detected MIME type's ancestry looking for a text
// type. Anything rooted in text/plain (source code, configs, markup)
// counts; true binaries do not.
func isTextual(m *mimetype.MIME) bool {
	for cur := m; cur != nil; cur = cur.Parent() {
		if strings.HasPrefix(cur.String(), "text/") {
			return true
		}
	}
	return false
}
