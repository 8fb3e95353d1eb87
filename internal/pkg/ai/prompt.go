package ai

import (
	"strings"

	"github.com/asum-cli/asum/internal/pkg/config"
)

// DiffPlaceholder is replaced verbatim with the filtered diff.
const DiffPlaceholder = "{{diff}}"

// DefaultSystemPrompt steers the model toward a single Conventional Commits message.
const DefaultSystemPrompt = `# ROLE
You are an expert Git commit message writer. Produce one commit message that follows Conventional Commits 1.0.0.

# RULES
1. The first line MUST be ` + "`<type>(<scope>): <description>`" + `; the scope is optional.
2. type is one of: feat, fix, docs, style, refactor, perf, test, chore, build, ci.
3. description uses the imperative mood, lowercase, no trailing period, at most 50 characters.
4. An optional body follows after one blank line and uses "- " bullet points to explain what and why.
5. Return ONLY the commit message. No preamble, no code fences, no markdown.
6. If the input says the diff was truncated, describe only the changes you can see.

# EXAMPLES

Input: a diff that fixes a nil check in parser/parse.go
Output:
fix(parser): handle empty diff

Input: a diff adding OAuth login handlers and token storage
Output:
feat(auth): add oauth2 login flow

- add google and github providers
- encrypt tokens before storage

Input: a diff renaming a package and updating every import
Output:
refactor: rename store package to storage`

// DefaultUserPrompt wraps the diff and leaves an open output slot.
const DefaultUserPrompt = "[INPUT DIFF]\n" + DiffPlaceholder + "\n\n[OUTPUT]"

// Prompt is the rendered pair sent to a provider.
type Prompt struct {
	System string
	User   string
}

// Length returns the combined prompt size in bytes.
func (p Prompt) Length() int {
	return len(p.System) + len(p.User)
}

// BuildPrompt renders the configured templates, falling back to the defaults
// for empty overrides. Every occurrence of DiffPlaceholder in either template
// is replaced with diff. When neither template contains it, the diff is
// appended to the user message after a blank line.
func BuildPrompt(diff string, prompts config.PromptsConfig) Prompt {
	system := prompts.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}
	user := prompts.UserPrompt
	if strings.TrimSpace(user) == "" {
		user = DefaultUserPrompt
	}

	placed := strings.Contains(system, DiffPlaceholder) || strings.Contains(user, DiffPlaceholder)

	p := Prompt{
		System: strings.ReplaceAll(system, DiffPlaceholder, diff),
		User:   strings.ReplaceAll(user, DiffPlaceholder, diff),
	}
	if !placed {
		p.User = strings.TrimRight(p.User, "\n") + "\n\n" + diff
	}
	return p
}
