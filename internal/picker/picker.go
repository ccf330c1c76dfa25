// Package picker selects image attachments from the local filesystem.
package picker

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Avicted/farmchat/internal/media"
)

var (
	ErrNotImage          = errors.New("not an image")
	ErrTooLarge          = errors.New("image too large")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Path picks the image at a path the user typed. An empty path means the
// user cancelled.
type Path string

func (p Path) Pick(ctx context.Context, opts media.PickOptions) (string, bool, error) {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return "", false, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	path, err := expandHome(raw)
	if err != nil {
		return "", false, err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("resolve image path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", false, fmt.Errorf("stat image: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("%w: not a regular file", ErrNotImage)
	}
	if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
		return "", false, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if len(opts.Formats) > 0 && !slices.Contains(opts.Formats, format) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return path, true, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
