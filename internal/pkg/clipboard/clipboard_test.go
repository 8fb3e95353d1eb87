package clipboard

import (
	stderrors "errors"
	"testing"

	"github.com/atotto/clipboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

func TestSystem_Copy(t *testing.T) {
	if clipboard.Unsupported {
		t.Skip("no clipboard utility on this machine")
	}

	var got string
	s := &System{write: func(text string) error {
		got = text
		return nil
	}}

	require.NoError(t, s.Copy("feat: add x"))
	assert.Equal(t, "feat: add x", got)
}

func TestSystem_CopyFailure(t *testing.T) {
	s := &System{write: func(string) error { return stderrors.New("exit status 1") }}

	err := s.Copy("feat: add x")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrClipboardFailed))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Copy("anything"))
}
