package ai

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/asum-cli/asum/internal/pkg/config"
)

func TestBuildPrompt_Defaults(t *testing.T) {
	p := BuildPrompt("diff --git a/x b/x\n", config.PromptsConfig{})

	assert.Equal(t, DefaultSystemPrompt, p.System)
	assert.Equal(t, "[INPUT DIFF]\ndiff --git a/x b/x\n\n\n[OUTPUT]", p.User)
	assert.Equal(t, len(p.System)+len(p.User), p.Length())
}

func TestBuildPrompt_Overrides(t *testing.T) {
	p := BuildPrompt("D", config.PromptsConfig{
		SystemPrompt: "be brief",
		UserPrompt:   "changes:\n{{diff}}\nend {{diff}}",
	})

	assert.Equal(t, "be brief", p.System)
	assert.Equal(t, "changes:\nD\nend D", p.User)
}

func TestBuildPrompt_PlaceholderInSystemOnly(t *testing.T) {
	p := BuildPrompt("D", config.PromptsConfig{
		SystemPrompt: "diff follows: {{diff}}",
		UserPrompt:   "write it",
	})

	assert.Equal(t, "diff follows: D", p.System)
	assert.Equal(t, "write it", p.User)
}

func TestBuildPrompt_AppendsWhenNoPlaceholder(t *testing.T) {
	p := BuildPrompt("D", config.PromptsConfig{UserPrompt: "summarize this\n"})

	assert.Equal(t, "summarize this\n\nD", p.User)
}

func TestBuildPrompt_WhitespaceOverrideFallsBack(t *testing.T) {
	p := BuildPrompt("D", config.PromptsConfig{SystemPrompt: "  \n", UserPrompt: "\t"})

	assert.Equal(t, DefaultSystemPrompt, p.System)
	assert.Contains(t, p.User, "[INPUT DIFF]\nD")
}

func TestBuildPrompt_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(11)

	properties := gopter.NewProperties(parameters)

	properties.Property("the diff always reaches the model verbatim", prop.ForAll(
		func(diff, user string) bool {
			p := BuildPrompt(diff, config.PromptsConfig{UserPrompt: user})
			return strings.Contains(p.System+p.User, diff)
		},
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.Property("no placeholder survives rendering", prop.ForAll(
		func(diff string) bool {
			p := BuildPrompt(diff, config.PromptsConfig{})
			return !strings.Contains(p.System+p.User, DiffPlaceholder)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
