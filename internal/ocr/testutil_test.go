package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu     sync.Mutex
	stdout string
	stderr string
	err    error

	calls []stubCall
}

type stubCall struct {
	name  string
	args  []string
	stdin []byte
}

func (s *stubRunner) Run(_ context.Context, name string, stdin io.Reader, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	var in []byte
	if stdin != nil {
		in, _ = io.ReadAll(stdin)
	}
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{name: name, args: args, stdin: in})
	s.mu.Unlock()
	return []byte(s.stdout), []byte(s.stderr), s.err
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
