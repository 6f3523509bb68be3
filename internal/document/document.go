// Package document models section-structured report documents and provides
// the versioned, write-once document store the improvement loop relies on.
package document

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// UnsectionedKey is the synthetic section name for content appearing before
// the first recognizable heading.
const UnsectionedKey = "__unsectioned__"

// Section is one heading-delimited slice of a document.
type Section struct {
	// Heading is the original heading line, numbering included.
	Heading string

	// Name is the normalized heading used as the stable identity key
	// across document versions.
	Name string

	// Number is the hierarchical numeric prefix ("3.1.2"), if present.
	Number string

	// Body is the section content without the heading line.
	Body string
}

var (
	// Numbered headings in plain text, e.g. "4. Study Population" or
	// "2.1 Inclusion Criteria".
	numberedHeadingRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s+(.+)$`)

	leadingNumberRe = regexp.MustCompile(`^\s*\d+(\.\d+)*\.?\s*`)
	nonAlnumRe      = regexp.MustCompile(`[^a-zA-Z0-9\s]+`)
	spacesRe        = regexp.MustCompile(`\s+`)
)

// NormalizeHeading reduces a heading line to its identity key: numbering and
// punctuation stripped, whitespace collapsed, case-folded.
//
//	"4.1.2 Study Population!!" -> "study population"
func NormalizeHeading(heading string) string {
	s := strings.TrimLeft(heading, "# \t")
	s = leadingNumberRe.ReplaceAllString(s, "")
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// HeadingNumber returns the hierarchical numeric prefix of a heading line,
// or empty when the heading is unnumbered.
func HeadingNumber(heading string) string {
	s := strings.TrimLeft(heading, "# \t")
	m := numberedHeadingRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// SplitSections splits document text into heading-delimited sections.
//
// Markdown ATX headings are detected via the goldmark AST; plain-text
// numbered headings ("4.1 Title") are recognized as a fallback so that
// template and generated documents split consistently regardless of markup.
// Content before the first heading lands in a section named UnsectionedKey,
// which is dropped when empty.
func SplitSections(content string) []Section {
	headingLines := markdownHeadingLines(content)

	var sections []Section
	current := Section{Heading: "", Name: UnsectionedKey}
	var body strings.Builder

	flush := func() {
		current.Body = strings.TrimRight(body.String(), "\n")
		if current.Name != UnsectionedKey || strings.TrimSpace(current.Body) != "" {
			sections = append(sections, current)
		}
		body.Reset()
	}

	for i, line := range strings.Split(content, "\n") {
		if heading, ok := headingLine(line, i, headingLines); ok {
			flush()
			name := NormalizeHeading(heading)
			if name == "" {
				name = UnsectionedKey
			}
			current = Section{
				Heading: strings.TrimSpace(heading),
				Name:    name,
				Number:  HeadingNumber(heading),
			}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// SectionMap indexes sections by normalized name, preserving first-seen
// order in the returned slice for display purposes.
func SectionMap(sections []Section) (map[string]Section, []string) {
	byName := make(map[string]Section, len(sections))
	var order []string
	for _, s := range sections {
		if _, seen := byName[s.Name]; !seen {
			byName[s.Name] = s
			order = append(order, s.Name)
		}
	}
	return byName, order
}

// headingLine reports whether the line at index i is a heading, returning
// the heading text.
func headingLine(line string, i int, markdownHeadings map[int]bool) (string, bool) {
	if markdownHeadings[i] {
		return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#")), true
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		// Inside a fenced block or otherwise not parsed as a heading.
		return "", false
	}
	if m := numberedHeadingRe.FindStringSubmatch(trimmed); m != nil {
		return trimmed, true
	}
	return "", false
}

// markdownHeadingLines parses the content as markdown and returns the set of
// zero-based line indexes that are ATX headings.
func markdownHeadingLines(content string) map[int]bool {
	source := []byte(content)
	lineStarts := []int{0}
	for i, b := range source {
		if b == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	lineOf := func(offset int) int {
		lo, hi := 0, len(lineStarts)-1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if lineStarts[mid] <= offset {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	lines := make(map[int]bool)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Lines().Len() > 0 {
			seg := heading.Lines().At(0)
			lines[lineOf(seg.Start)] = true
		}
		return ast.WalkContinue, nil
	})
	return lines
}
