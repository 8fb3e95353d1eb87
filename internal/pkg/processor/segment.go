package processor

import (
	"fmt"
	"strings"
)

// ChangeType represents the type of change in a diff segment.
type ChangeType int

const (
	ChangeTypeModified ChangeType = iota
	ChangeTypeAdded
	ChangeTypeDeleted
	ChangeTypeRenamed
)

// String returns the string representation of ChangeType.
func (c ChangeType) String() string {
	switch c {
	case ChangeTypeAdded:
		return "added"
	case ChangeTypeModified:
		return "modified"
	case ChangeTypeDeleted:
		return "deleted"
	case ChangeTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// symbol returns the one-letter status used in summaries.
func (c ChangeType) symbol() string {
	switch c {
	case ChangeTypeAdded:
		return "A"
	case ChangeTypeDeleted:
		return "D"
	case ChangeTypeRenamed:
		return "R"
	default:
		return "M"
	}
}

// Segment is one file's part of a unified diff.
type Segment struct {
	Path       string
	OldPath    string // For renames, the original file path
	ChangeType ChangeType
	Additions  int
	Deletions  int
	IsBinary   bool
	Content    string
}

// Size returns the segment length in bytes.
func (s Segment) Size() int {
	return len(s.Content)
}

// Stat returns a one-line summary like "[M] path (+3/-1)".
func (s Segment) Stat() string {
	path := s.Path
	if path == "" {
		path = "(preamble)"
	}
	if s.IsBinary {
		return fmt.Sprintf("[%s] %s (binary)", s.ChangeType.symbol(), path)
	}
	return fmt.Sprintf("[%s] %s (+%d/-%d)", s.ChangeType.symbol(), path, s.Additions, s.Deletions)
}

const fileHeader = "diff --git "

// ParseSegments splits a raw diff at file headers. Concatenating the
// Content of the returned segments reproduces raw exactly. Text before the
// first header becomes a segment with an empty Path.
func ParseSegments(raw string) []Segment {
	var segments []Segment
	for _, part := range splitByFileDiff(raw) {
		segments = append(segments, parseSegment(part))
	}
	return segments
}

// splitByFileDiff splits at lines starting with "diff --git ", keeping the
// header with the segment it opens.
func splitByFileDiff(raw string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(raw); {
		if strings.HasPrefix(raw[i:], fileHeader) && i > start {
			parts = append(parts, raw[start:i])
			start = i
		}
		next := strings.IndexByte(raw[i:], '\n')
		if next < 0 {
			break
		}
		i += next + 1
	}
	if start < len(raw) {
		parts = append(parts, raw[start:])
	}
	return parts
}

func parseSegment(content string) Segment {
	seg := Segment{Content: content}
	inHunk := false

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, fileHeader):
			seg.Path = extractFilePath(line)
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case inHunk && strings.HasPrefix(line, "+"):
			seg.Additions++
		case inHunk && strings.HasPrefix(line, "-"):
			seg.Deletions++
		case inHunk:
			// context line
		case strings.HasPrefix(line, "new file mode"):
			seg.ChangeType = ChangeTypeAdded
		case strings.HasPrefix(line, "deleted file mode"):
			seg.ChangeType = ChangeTypeDeleted
		case strings.HasPrefix(line, "rename from "):
			seg.OldPath = strings.TrimPrefix(line, "rename from ")
			seg.ChangeType = ChangeTypeRenamed
		case strings.HasPrefix(line, "rename to "):
			seg.Path = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "+++ b/"):
			seg.Path = strings.TrimPrefix(line, "+++ b/")
		case strings.HasPrefix(line, "Binary files "), strings.HasPrefix(line, "GIT binary patch"):
			seg.IsBinary = true
		}
	}

	return seg
}

// extractFilePath extracts the destination path from a diff header line.
// Format: "diff --git a/path/to/file b/path/to/file"
func extractFilePath(line string) string {
	line = strings.TrimPrefix(line, fileHeader)

	if idx := strings.LastIndex(line, " b/"); idx >= 0 {
		return line[idx+len(" b/"):]
	}

	if strings.HasPrefix(line, "a/") {
		first, _, _ := strings.Cut(line, " ")
		return strings.TrimPrefix(first, "a/")
	}

	return line
}
