// Package processor turns a raw staged diff into the bounded payload sent to
// a provider: ignorable segments are dropped and the rest is truncated at
// segment boundaries.
package processor

import (
	stderrors "errors"
	"fmt"
	"path"
	"strings"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// ErrNothingToSummarize is returned when the diff is empty or every
// segment was filtered out. It is a signal, not a failure.
var ErrNothingToSummarize = stderrors.New("nothing to summarize")

// IgnoreReason explains why a segment was dropped.
type IgnoreReason string

const (
	ReasonLockFile  IgnoreReason = "lock file"
	ReasonGenerated IgnoreReason = "generated file"
	ReasonVendored  IgnoreReason = "vendored path"
	ReasonBinary    IgnoreReason = "binary change"
	ReasonPattern   IgnoreReason = "ignore pattern"
	ReasonExtension IgnoreReason = "extension not included"
)

// IgnoredSegment is a segment removed by the filter.
type IgnoredSegment struct {
	Segment
	Reason IgnoreReason
}

// FilteredDiff is the payload derived from one raw diff.
type FilteredDiff struct {
	// Text is the payload, at most MaxLength bytes.
	Text string
	// Included segments appear in Text in their original order.
	Included []Segment
	// Omitted segments survived filtering but did not fit.
	Omitted []Segment
	Ignored []IgnoredSegment
	// RawSize is the length of the unfiltered diff.
	RawSize int
	// FileList means no file matched include_extensions and Text lists the
	// staged files instead of their content.
	FileList bool
}

// Truncated reports whether any relevant segment was left out for size.
func (d *FilteredDiff) Truncated() bool {
	return len(d.Omitted) > 0
}

// Options holds configuration for the diff filter.
type Options struct {
	MaxLength int
	// IgnorePatterns are glob patterns added to the built-in ignore set.
	// A trailing "/" matches a directory prefix.
	IgnorePatterns []string
	// IncludeExtensions, when non-empty, keeps only matching files.
	// Accepts "go", ".go" or "*.go".
	IncludeExtensions []string
}

// OptionsFromConfig extracts filter options from the resolved configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxLength:         cfg.General.MaxDiffLength,
		IgnorePatterns:    cfg.General.IgnorePatterns,
		IncludeExtensions: cfg.General.IncludeExtensions,
	}
}

// lockFilePatterns contains lock file names that never help describe a change.
var lockFilePatterns = []string{
	"package-lock.json",
	"npm-shrinkwrap.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"bun.lockb",
	"go.sum",
	"Cargo.lock",
	"Gemfile.lock",
	"composer.lock",
	"poetry.lock",
	"Pipfile.lock",
	"*.lock",
	"*-lock.json",
	"*-lock.yaml",
}

var generatedPatterns = []string{
	"*.min.js",
	"*.min.css",
	"*.map",
}

// vendoredDirs match any path component.
var vendoredDirs = []string{
	"vendor",
	"node_modules",
	"dist",
}

// Processor filters and truncates diffs.
type Processor struct {
	opts    Options
	include []string
}

// DefaultMaxLength matches the default max_diff_length.
const DefaultMaxLength = 36000

// NewProcessor creates a Processor. A non-positive MaxLength uses DefaultMaxLength.
func NewProcessor(opts Options) *Processor {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	include := make([]string, 0, len(opts.IncludeExtensions))
	for _, ext := range opts.IncludeExtensions {
		if p := normalizeExtension(ext); p != "" {
			include = append(include, p)
		}
	}
	return &Processor{opts: opts, include: include}
}

// Filter applies the configured limits from cfg to raw.
func Filter(raw string, cfg *config.Config) (*FilteredDiff, error) {
	return NewProcessor(OptionsFromConfig(cfg)).Process(raw)
}

// Process drops ignorable segments, then truncates the survivors to
// MaxLength at a segment boundary with a trailing marker.
func (p *Processor) Process(raw string) (*FilteredDiff, error) {
	result := &FilteredDiff{RawSize: len(raw)}

	var kept []Segment
	for _, seg := range ParseSegments(raw) {
		if strings.TrimSpace(seg.Content) == "" {
			continue
		}
		if reason, ignored := p.ignoreReason(seg); ignored {
			result.Ignored = append(result.Ignored, IgnoredSegment{Segment: seg, Reason: reason})
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return p.fileList(result)
	}

	result.Included, result.Omitted, result.Text = truncate(kept, p.opts.MaxLength)
	if result.Text == "" {
		return result, limitTooSmall(p.opts.MaxLength)
	}
	return result, nil
}

// fileListHeader opens the payload sent when only the extension allowlist
// dropped files.
const fileListHeader = "No staged file matches the configured extensions. Staged files:\n"

// fileList describes files dropped by the extension allowlist by name and
// change counts. Lock, generated, vendored and binary drops are not listed;
// without any allowlist drop the diff has nothing to summarize.
func (p *Processor) fileList(result *FilteredDiff) (*FilteredDiff, error) {
	var lines []string
	for _, ig := range result.Ignored {
		if ig.Reason == ReasonExtension {
			lines = append(lines, "  "+ig.Segment.Stat()+"\n")
		}
	}
	if len(lines) == 0 {
		return result, ErrNothingToSummarize
	}

	limit := p.opts.MaxLength
	var sb strings.Builder
	sb.WriteString(fileListHeader)
	for i, line := range lines {
		if sb.Len()+len(line) > limit {
			if i == 0 {
				return result, limitTooSmall(limit)
			}
			break
		}
		sb.WriteString(line)
	}
	result.Text = sb.String()
	result.FileList = true
	return result, nil
}

func limitTooSmall(limit int) error {
	return errors.New(errors.ErrConfigInvalid,
		fmt.Sprintf("max_diff_length %d is too small to fit any file segment", limit)).
		WithSuggestion("Increase general.max_diff_length in asum.toml")
}

func (p *Processor) ignoreReason(seg Segment) (IgnoreReason, bool) {
	if seg.IsBinary {
		return ReasonBinary, true
	}
	if seg.Path == "" {
		return "", false
	}

	base := path.Base(seg.Path)
	switch {
	case matchAny(lockFilePatterns, seg.Path, base):
		return ReasonLockFile, true
	case matchAny(generatedPatterns, seg.Path, base):
		return ReasonGenerated, true
	case inVendoredDir(seg.Path):
		return ReasonVendored, true
	case matchAny(p.opts.IgnorePatterns, seg.Path, base):
		return ReasonPattern, true
	case len(p.include) > 0 && !matchAny(p.include, seg.Path, base):
		return ReasonExtension, true
	}
	return "", false
}

// matchAny matches each glob against the base name and the full path.
func matchAny(patterns []string, full, base string) bool {
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			if strings.HasPrefix(full, pattern) || strings.Contains(full, "/"+pattern) {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(pattern, full); ok {
			return true
		}
	}
	return false
}

func inVendoredDir(p string) bool {
	parts := strings.Split(p, "/")
	for _, dir := range parts[:len(parts)-1] {
		for _, v := range vendoredDirs {
			if dir == v {
				return true
			}
		}
	}
	return false
}

func normalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	switch {
	case ext == "":
		return ""
	case strings.ContainsAny(ext, "*?["):
		return ext
	case strings.HasPrefix(ext, "."):
		return "*" + ext
	default:
		return "*." + ext
	}
}

// truncate keeps the longest prefix of whole segments that fits in limit
// together with the marker. The marker lists omitted files while space
// allows. If not even the marker fits it is left out.
func truncate(segments []Segment, limit int) (included, omitted []Segment, text string) {
	total := 0
	for _, s := range segments {
		total += s.Size()
	}
	if total <= limit {
		return segments, nil, concat(segments)
	}

	// Reserve for the widest marker this input can produce.
	reserve := len(truncationMarker(len(segments), len(segments), total))
	budget := limit - reserve
	if budget < 0 {
		budget = limit
		reserve = -1
	}

	size := 0
	n := 0
	for n < len(segments) && size+segments[n].Size() <= budget {
		size += segments[n].Size()
		n++
	}
	included, omitted = segments[:n], segments[n:]

	var sb strings.Builder
	sb.WriteString(concat(included))
	if reserve < 0 {
		return included, omitted, sb.String()
	}

	omittedBytes := total - size
	sb.WriteString(truncationMarker(len(omitted), len(segments), omittedBytes))
	for _, s := range omitted {
		line := "  " + s.Stat() + "\n"
		if sb.Len()+len(line) > limit {
			break
		}
		sb.WriteString(line)
	}
	return included, omitted, sb.String()
}

func truncationMarker(omitted, total, omittedBytes int) string {
	return fmt.Sprintf("\n[... diff truncated: %d of %d file segments omitted (%d bytes) ...]\n", omitted, total, omittedBytes)
}

func concat(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.Content)
	}
	return sb.String()
}
