package note

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"go.uber.org/zap"
)

// ErrClipboard is returned when no copy mechanism succeeded.
var ErrClipboard = errors.New("clipboard unavailable")

// Copier writes text to the system clipboard, falling back to an OSC 52
// escape sequence on the terminal.
type Copier struct {
	// WriteAll is the primary mechanism.
	WriteAll func(string) error
	// Terminal receives the OSC 52 sequence; nil disables the fallback.
	Terminal io.Writer

	logger *zap.Logger
}

// NewCopier uses the system clipboard and stderr. A nil logger discards
// output.
func NewCopier(logger *zap.Logger) *Copier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Copier{
		WriteAll: clipboard.WriteAll,
		Terminal: os.Stderr,
		logger:   logger,
	}
}

// Copy places text on the clipboard.
func (c *Copier) Copy(text string) error {
	if text == "" {
		return fmt.Errorf("%w: note is empty", ErrValidation)
	}

	var primaryErr error
	if c.WriteAll != nil {
		if primaryErr = c.WriteAll(text); primaryErr == nil {
			c.logger.Debug("note copied to clipboard")
			return nil
		}
		c.logger.Warn("system clipboard failed, trying OSC 52", zap.Error(primaryErr))
	}

	if c.Terminal == nil {
		return fmt.Errorf("%w: %v", ErrClipboard, primaryErr)
	}
	if _, err := osc52.New(text).WriteTo(c.Terminal); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboard, errors.Join(primaryErr, err))
	}
	c.logger.Info("note sent to terminal clipboard via OSC 52")
	return nil
}
