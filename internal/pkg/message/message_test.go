package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

func TestNormalize_Valid(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantType  string
		wantScope string
		wantDesc  string
		wantBody  string
	}{
		{
			name:     "simple feat",
			raw:      "feat: add new feature",
			wantType: "feat",
			wantDesc: "add new feature",
		},
		{
			name:      "scope and body",
			raw:       "fix(parser): handle empty diff\n\nAdds a guard clause.",
			wantType:  "fix",
			wantScope: "parser",
			wantDesc:  "handle empty diff",
			wantBody:  "Adds a guard clause.",
		},
		{
			name:     "surrounding whitespace",
			raw:      "\n\n  docs: update readme  \n\n",
			wantType: "docs",
			wantDesc: "update readme",
		},
		{
			name:     "code fence",
			raw:      "```text\nci: cache go modules\n```",
			wantType: "ci",
			wantDesc: "cache go modules",
		},
		{
			name:     "bullet body kept verbatim",
			raw:      "refactor(store): split writer\n\n- move flush to writer.go\n  - keep api stable",
			wantType: "refactor", wantScope: "store",
			wantDesc: "split writer",
			wantBody: "- move flush to writer.go\n  - keep api stable",
		},
		{
			name:     "no blank line before body",
			raw:      "chore: bump deps\nupdate cobra",
			wantType: "chore",
			wantDesc: "bump deps",
			wantBody: "update cobra",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, cm.Type)
			assert.Equal(t, tt.wantScope, cm.Scope)
			assert.Equal(t, tt.wantDesc, cm.Description)
			assert.Equal(t, tt.wantBody, cm.Body)
		})
	}
}

func TestNormalize_GuardClauseScenario(t *testing.T) {
	cm, err := Normalize("fix(parser): handle empty diff\n\nAdds a guard clause.")
	require.NoError(t, err)

	assert.Equal(t, "fix(parser): handle empty diff", cm.Header)
	assert.Equal(t, "Adds a guard clause.", cm.Body)
	assert.Equal(t, "fix(parser): handle empty diff\n\nAdds a guard clause.", cm.String())
}

func TestNormalize_BreakingMarker(t *testing.T) {
	cm, err := Normalize("feat(api)!: drop v1 endpoints")
	require.NoError(t, err)

	assert.True(t, cm.Breaking)
	assert.Equal(t, "api", cm.Scope)
}

func TestNormalize_Repair(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHeader string
		wantBody   string
	}{
		{"list marker", "- feat: add login", "feat: add login", ""},
		{"numbered", "1. fix: close file", "fix: close file", ""},
		{"quoted", `"docs: fix typo"`, "docs: fix typo", ""},
		{"backticks", "`test: cover parser`", "test: cover parser", ""},
		{"bold", "**feat(ui):** add spinner", "feat(ui): add spinner", ""},
		{"blockquote", "> perf: avoid copy", "perf: avoid copy", ""},
		{"label", "Commit message: build: pin go 1.25", "build: pin go 1.25", ""},
		{"capitalized type", "Feat: add export", "feat: add export", ""},
		{"preamble line", "Here is the commit message:\n\nfix: retry on 429\n\n- honour retry-after", "fix: retry on 429", "- honour retry-after"},
		{"echoed prompt", "[OUTPUT]\nstyle: format imports", "style: format imports", ""},
		{"missing space after colon", "feat:add login", "feat: add login", ""},
		{"tab after colon", "fix(io):\tclose file", "fix(io): close file", ""},
		{"extra spaces after colon", "docs:   fix typo", "docs: fix typo", ""},
		{"preamble then fence", "Sure! Here it is:\n```\nchore: tidy go.mod\n```", "chore: tidy go.mod", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, cm.Header)
			assert.Equal(t, tt.wantBody, cm.Body)
		})
	}
}

func TestNormalize_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"   \n\t",
		"This change improves the parser by adding a guard clause.",
		"feature: add thing",
		"feat:",
		"feat(): empty scope",
		"feat(  ): blank scope",
		"fix(\t)!: blank scope",
		"```\n```",
	}

	for _, raw := range tests {
		_, err := Normalize(raw)
		require.Error(t, err, "raw=%q", raw)
		assert.True(t, errors.HasCode(err, errors.ErrInvalidFormat), "raw=%q", raw)
		assert.Equal(t, raw, errors.RawText(err))
	}
}

func TestCommitMessage_Warnings(t *testing.T) {
	short, err := Normalize("fix: small")
	require.NoError(t, err)
	assert.Empty(t, short.Warnings())
	assert.False(t, short.SubjectExceedsLength())

	long, err := Normalize("feat(config): " + strings.Repeat("x", 70))
	require.NoError(t, err)
	assert.True(t, long.SubjectExceedsLength())
	require.Len(t, long.Warnings(), 1)
	assert.Contains(t, long.Warnings()[0], "exceeds 72 characters")
}

func TestIsValidCommitType(t *testing.T) {
	for _, ct := range ValidCommitTypes {
		assert.True(t, IsValidCommitType(ct), ct)
	}
	assert.False(t, IsValidCommitType("revert"))
	assert.False(t, IsValidCommitType("FEAT"))
}
