// Package message turns raw generated text into a Conventional Commits message.
package message

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

// ValidCommitTypes contains the accepted header types.
var ValidCommitTypes = []string{
	"feat", "fix", "docs", "style", "refactor",
	"perf", "test", "chore", "build", "ci",
}

// MaxSubjectLength is the recommended maximum length for the header line.
const MaxSubjectLength = 72

// headerRegex matches <type>(<scope>)?!?: <description>.
// The scope must hold a non-space character and exactly one space follows the colon.
var headerRegex = regexp.MustCompile(`^(feat|fix|docs|style|refactor|perf|test|chore|build|ci)(\(([^()]*[^()\s][^()]*)\))?(!)?: (\S.*)$`)

var (
	listMarkerRegex = regexp.MustCompile(`^([-*+•]|\d+[.)])\s+`)
	labelRegex      = regexp.MustCompile(`(?i)^(suggested\s+|generated\s+)?(commit\s+message|commit|message|output)\s*:\s*`)
	typeWordRegex   = regexp.MustCompile(`^([A-Za-z]+)([(!:])`)
	separatorRegex  = regexp.MustCompile(`^([a-z]+(?:\([^()]*\))?!?):[ \t]*(\S)`)
)

// echoMarkers are fragments of the default prompt that models sometimes repeat.
var echoMarkers = []string{"[output]", "[input diff]", "input diff", "diff to analyze"}

// CommitMessage is a normalized commit message.
type CommitMessage struct {
	// Header is the first line as accepted, trimmed.
	Header      string
	Type        string
	Scope       string
	Breaking    bool
	Description string
	// Body holds the lines after the header, verbatim.
	Body string
}

// String returns the header and, when present, the body after one blank line.
func (cm *CommitMessage) String() string {
	if cm.Body == "" {
		return cm.Header
	}
	return cm.Header + "\n\n" + cm.Body
}

// HasBody returns true if the commit message has a body section.
func (cm *CommitMessage) HasBody() bool {
	return cm.Body != ""
}

// SubjectExceedsLength checks if the header exceeds the recommended length.
func (cm *CommitMessage) SubjectExceedsLength() bool {
	return len([]rune(cm.Header)) > MaxSubjectLength
}

// Warnings returns style problems that do not make the message invalid.
func (cm *CommitMessage) Warnings() []string {
	var warnings []string
	if cm.SubjectExceedsLength() {
		warnings = append(warnings, fmt.Sprintf(
			"subject line exceeds %d characters (%d chars)", MaxSubjectLength, len([]rune(cm.Header))))
	}
	return warnings
}

// IsValidCommitType checks if the given type is in the accepted vocabulary.
func IsValidCommitType(commitType string) bool {
	return slices.Contains(ValidCommitTypes, commitType)
}

// Normalize trims raw generated text, strips wrapping code fences and
// validates the header. A header that does not match gets one repair pass;
// if it still does not match, an InvalidFormat error carrying raw is returned.
func Normalize(raw string) (*CommitMessage, error) {
	lines := stripFences(strings.Split(strings.TrimSpace(raw), "\n"))

	start := firstNonBlank(lines)
	if start < 0 {
		return nil, errors.NewInvalidFormatError(raw)
	}
	if cm, ok := parse(lines[start], lines[start+1:]); ok {
		return cm, nil
	}

	if header, rest, ok := repair(lines[start:]); ok {
		if cm, ok := parse(header, rest); ok {
			return cm, nil
		}
	}
	return nil, errors.NewInvalidFormatError(raw)
}

func parse(header string, rest []string) (*CommitMessage, bool) {
	header = strings.TrimSpace(header)
	m := headerRegex.FindStringSubmatch(header)
	if m == nil {
		return nil, false
	}
	return &CommitMessage{
		Header:      header,
		Type:        m[1],
		Scope:       m[3],
		Breaking:    m[4] == "!",
		Description: strings.TrimSpace(m[5]),
		Body:        body(rest),
	}, true
}

// body drops the blank separator lines and trailing whitespace.
func body(rest []string) string {
	i := firstNonBlank(rest)
	if i < 0 {
		return ""
	}
	return strings.TrimRightFunc(strings.Join(rest[i:], "\n"), unicode.IsSpace)
}

// repair skips leading preamble, echoed prompt and fence lines, then cleans
// the first remaining line as a header candidate.
func repair(lines []string) (string, []string, bool) {
	fenced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case isFence(trimmed):
			fenced = true
			continue
		case isEcho(trimmed):
			continue
		}

		header := cleanHeader(trimmed)
		if header == "" || (isPreamble(trimmed) && !headerRegex.MatchString(header)) {
			continue
		}
		rest := lines[i+1:]
		if fenced {
			rest = dropClosingFence(rest)
		}
		return header, rest, true
	}
	return "", nil, false
}

func cleanHeader(s string) string {
	s = strings.TrimSpace(strings.TrimLeft(s, "> "))
	s = listMarkerRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.Trim(s, "\"'`“”")
	s = labelRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.Trim(s, "\"'`“”"))

	if m := typeWordRegex.FindStringSubmatch(s); m != nil {
		if lower := strings.ToLower(m[1]); IsValidCommitType(lower) {
			s = lower + s[len(m[1]):]
		}
	}
	return separatorRegex.ReplaceAllString(s, "$1: $2")
}

// stripFences removes a code fence wrapping the whole text.
func stripFences(lines []string) []string {
	if len(lines) == 0 || !isFence(strings.TrimSpace(lines[0])) {
		return lines
	}
	return dropClosingFence(lines[1:])
}

func dropClosingFence(lines []string) []string {
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if trimmed == "```" {
			return lines[:i]
		}
		break
	}
	return lines
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```")
}

func isEcho(trimmed string) bool {
	lower := strings.ToLower(trimmed)
	for _, marker := range echoMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isPreamble reports lines like "Here is the commit message:".
func isPreamble(trimmed string) bool {
	return strings.HasSuffix(strings.TrimRight(trimmed, "*"), ":")
}

func firstNonBlank(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return i
		}
	}
	return -1
}
