package downloader

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Muxer combines separately fetched audio and video elementary streams
// into a single container.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
}

// FFmpegMuxer shells out to the ffmpeg binary. Streams are copied, not
// re-encoded.
type FFmpegMuxer struct {
	Bin string
}

func NewFFmpegMuxer() *FFmpegMuxer {
	return &FFmpegMuxer{Bin: "ffmpeg"}
}

func (m *FFmpegMuxer) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	bin := m.Bin
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin, "-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath, "-i", audioPath, "-c", "copy", outPath)

	if out, err := cmd.CombinedOutput(); err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return wrapCategory(CategoryMux, fmt.Errorf("ffmpeg: %s", detail))
	}
	return nil
}
