// Package clipboard copies the final message to the system clipboard.
package clipboard

import (
	"github.com/atotto/clipboard"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

// Sink accepts the final message.
type Sink interface {
	Copy(text string) error
}

// System writes to the OS clipboard through xclip, xsel, wl-copy, pbcopy or
// the Windows API, whichever is available.
type System struct {
	write func(string) error
}

// NewSystem returns the OS clipboard sink.
func NewSystem() *System {
	return &System{write: clipboard.WriteAll}
}

// Copy writes text to the clipboard.
func (s *System) Copy(text string) error {
	if clipboard.Unsupported {
		return errors.New(errors.ErrClipboardFailed, "no clipboard utility available").
			WithSuggestion("Install xclip, xsel or wl-clipboard, or set copy_to_clipboard = false")
	}
	if err := s.write(text); err != nil {
		return errors.Wrap(err, errors.ErrClipboardFailed, "failed to copy message to clipboard")
	}
	return nil
}

// Discard is a sink that does nothing, used when copying is disabled.
type Discard struct{}

// Copy does nothing.
func (Discard) Copy(string) error { return nil }
