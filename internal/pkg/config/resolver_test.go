package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// newTestResolver returns a resolver over fresh work and home dirs.
func newTestResolver(t *testing.T) (*Resolver, string, string) {
	t.Helper()
	work := t.TempDir()
	home := t.TempDir()
	return NewResolver(work, home).WithoutEnv(), work, home
}

// genDirName generates lowercase directory names, avoiding the discard rate of SuchThat.
func genDirName() gopter.Gen {
	return gen.IntRange(1, 12).FlatMap(func(length interface{}) gopter.Gen {
		return gen.SliceOfN(length.(int), gen.Rune()).Map(func(runes []rune) string {
			for i := range runes {
				runes[i] = 'a' + (runes[i] % 26)
			}
			return string(runes)
		})
	}, reflect.TypeOf(""))
}

// Property: with no file in either search location, Resolve yields the
// documented defaults no matter where the directories are.
func TestResolve_DefaultsWithoutFiles_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)
	root := t.TempDir()

	properties.Property("missing files resolve to defaults", prop.ForAll(
		func(workName, homeName string) bool {
			work := filepath.Join(root, "w", workName)
			home := filepath.Join(root, "h", homeName)
			cfg, err := NewResolver(work, home).WithoutEnv().Resolve()
			if err != nil {
				t.Logf("Resolve() error = %v", err)
				return false
			}
			want := Defaults()
			return reflect.DeepEqual(cfg.General, want.General) &&
				cfg.AIParams == want.AIParams &&
				cfg.Ollama == want.Ollama &&
				cfg.Gemini == want.Gemini &&
				cfg.OpenAI == want.OpenAI &&
				cfg.Prompts == want.Prompts &&
				len(cfg.Sources) == 0
		},
		genDirName(),
		genDirName(),
	))

	properties.TestingRun(t)
}

func TestResolve_DefaultValues(t *testing.T) {
	r, _, _ := newTestResolver(t)

	cfg, err := r.Resolve()
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.General.ActiveProvider)
	assert.Equal(t, 36000, cfg.General.MaxDiffLength)
	assert.Equal(t, 60, cfg.General.TimeoutSeconds)
	assert.True(t, cfg.General.CopyToClipboard)
	assert.Equal(t, "http://localhost:11434/api/chat", cfg.Ollama.URL)
	assert.Equal(t, "llama3", cfg.ActiveModel())
	assert.Empty(t, cfg.Sources)
}

func TestResolve_HomeOnly(t *testing.T) {
	r, _, home := newTestResolver(t)
	writeFile(t, filepath.Join(home, HomeSubdir, FileName), `
[general]
active_provider = "gemini"

[gemini]
api_key = "AIzaHOME"
`)

	cfg, err := r.Resolve()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.General.ActiveProvider)
	assert.Equal(t, "AIzaHOME", cfg.ActiveAPIKey())
	assert.Equal(t, "gemini-1.5-flash", cfg.ActiveModel())
	assert.Equal(t, []string{r.HomePath()}, cfg.Sources)
}

func TestResolve_LocalOverridesHomeFieldByField(t *testing.T) {
	r, work, home := newTestResolver(t)
	writeFile(t, filepath.Join(home, HomeSubdir, FileName), `
[general]
active_provider = "gemini"
max_diff_length = 1000

[gemini]
api_key = "AIzaHOME"
model = "gemini-pro"
`)
	writeFile(t, filepath.Join(work, FileName), `
[general]
max_diff_length = 2000

[gemini]
model = "gemini-1.5-pro"
`)

	cfg, err := r.Resolve()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.General.ActiveProvider, "home value kept when local omits it")
	assert.Equal(t, 2000, cfg.General.MaxDiffLength, "local value wins")
	assert.Equal(t, "AIzaHOME", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, []string{r.HomePath(), r.LocalPath()}, cfg.Sources)
}

func TestResolve_UnknownKeysIgnored(t *testing.T) {
	r, work, _ := newTestResolver(t)
	writeFile(t, filepath.Join(work, FileName), `
[general]
git_extensions = [".go"]
unknown_flag = true

[something_else]
key = "value"
`)

	cfg, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, Defaults().General.MaxDiffLength, cfg.General.MaxDiffLength)
}

func TestResolve_ProviderAliases(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"local-model", ProviderOllama},
		{"hosted-api", ProviderGemini},
		{"OpenAI", ProviderOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r, work, _ := newTestResolver(t)
			writeFile(t, filepath.Join(work, FileName), "[general]\nactive_provider = \""+tt.value+"\"\n")

			cfg, err := r.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.General.ActiveProvider)
		})
	}
}

func TestResolve_UnknownProvider(t *testing.T) {
	r, work, _ := newTestResolver(t)
	writeFile(t, filepath.Join(work, FileName), "[general]\nactive_provider = \"skynet\"\n")

	_, err := r.Resolve()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfigInvalid))
}

func TestResolve_OutOfRangeValues(t *testing.T) {
	r, work, _ := newTestResolver(t)
	writeFile(t, filepath.Join(work, FileName), `
[ai_params]
temperature = 3.5
top_p = 0.9
`)

	_, err := r.Resolve()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfigInvalid))
	assert.Contains(t, err.Error(), "ai_params.temperature")
}

func TestResolve_SyntaxErrorHasLocation(t *testing.T) {
	r, work, _ := newTestResolver(t)
	writeFile(t, filepath.Join(work, FileName), "[general]\nmax_diff_length = = 5\n")

	_, err := r.Resolve()
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.ErrConfigParse))

	appErr := errors.GetAppError(err)
	line, _ := appErr.Context["line"].(int)
	assert.Equal(t, 2, line)
}

func TestResolve_TypeMismatch(t *testing.T) {
	r, work, _ := newTestResolver(t)
	writeFile(t, filepath.Join(work, FileName), "[general]\nmax_diff_length = \"lots\"\n")

	_, err := r.Resolve()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfigParse))
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, FileName), "[ollama]\nmodel = \"mistral\"\n")
	t.Setenv("ASUM_OLLAMA_MODEL", "qwen2")

	cfg, err := NewResolver(work, "").Resolve()
	require.NoError(t, err)
	assert.Equal(t, "qwen2", cfg.Ollama.Model)
}

func TestResolve_VendorAPIKeyEnv(t *testing.T) {
	t.Setenv("ASUM_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "AIzaFROMENV")

	cfg, err := NewResolver(t.TempDir(), "").Resolve()
	require.NoError(t, err)
	assert.Equal(t, "AIzaFROMENV", cfg.Gemini.APIKey)
}

func TestResolve_OverridesWin(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, FileName), "[general]\nactive_provider = \"gemini\"\ntimeout_seconds = 10\n")
	t.Setenv("ASUM_GENERAL_TIMEOUT_SECONDS", "20")

	r := NewResolver(work, "")
	r.SetOverride("general.active_provider", "openai")
	r.SetOverride("general.timeout_seconds", 30)

	cfg, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.General.ActiveProvider)
	assert.Equal(t, 30, cfg.General.TimeoutSeconds)
	assert.Equal(t, "30s", cfg.Timeout().String())
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()

	t.Run("not found", func(t *testing.T) {
		err := Verify(filepath.Join(dir, "missing.toml"))
		assert.True(t, errors.HasCode(err, errors.ErrConfigNotFound))
	})

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "valid.toml")
		writeFile(t, path, "[general]\nactive_provider = \"ollama\"\n\n[ai_params]\ntemperature = 0.2\n")
		assert.NoError(t, Verify(path))
	})

	t.Run("syntax error", func(t *testing.T) {
		path := filepath.Join(dir, "broken.toml")
		writeFile(t, path, "[general\nactive_provider = \"ollama\"\n")
		err := Verify(path)
		require.True(t, errors.HasCode(err, errors.ErrConfigParse))
		line, _ := errors.GetAppError(err).Context["line"].(int)
		assert.Equal(t, 1, line)
	})

	t.Run("invalid range", func(t *testing.T) {
		path := filepath.Join(dir, "range.toml")
		writeFile(t, path, "[general]\nmax_diff_length = 0\n")
		assert.True(t, errors.HasCode(Verify(path), errors.ErrConfigInvalid))
	})

	t.Run("no side effects", func(t *testing.T) {
		before, err := os.ReadDir(dir)
		require.NoError(t, err)
		_ = Verify(filepath.Join(dir, "valid.toml"))
		after, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Equal(t, len(before), len(after))
	})
}

func TestVerify_IgnoresEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "[general]\nmax_diff_length = 100\n")
	t.Setenv("ASUM_GENERAL_MAX_DIFF_LENGTH", "-1")

	assert.NoError(t, Verify(path))
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), HomeSubdir, FileName)
	cfg := Defaults()
	cfg.General.ActiveProvider = ProviderGemini
	cfg.Gemini.APIKey = "AIzaSTARTER"

	require.NoError(t, WriteStarter(path, cfg, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.NoError(t, Verify(path))

	r := NewResolver(filepath.Dir(path), "").WithoutEnv()
	// the file lives at <dir>/asum.toml, which is the resolver's local path
	loaded, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, loaded.General.ActiveProvider)
	assert.Equal(t, "AIzaSTARTER", loaded.Gemini.APIKey)

	err = WriteStarter(path, cfg, false)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArguments))
	assert.NoError(t, WriteStarter(path, cfg, true))
}

func TestNormalizeProvider(t *testing.T) {
	for _, name := range []string{"ollama", " Local-Model ", "local"} {
		got, ok := NormalizeProvider(name)
		assert.True(t, ok, name)
		assert.Equal(t, ProviderOllama, got, name)
	}
	_, ok := NormalizeProvider("")
	assert.False(t, ok)
}

func TestSetActiveModel(t *testing.T) {
	for _, provider := range []string{ProviderOllama, ProviderGemini, ProviderOpenAI} {
		cfg := Defaults()
		cfg.General.ActiveProvider = provider
		cfg.SetActiveModel("custom-model")
		assert.Equal(t, "custom-model", cfg.ActiveModel(), provider)
	}
}
