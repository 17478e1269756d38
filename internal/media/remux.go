package media

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// ProcessedSuffix is appended to the input path to form the remux output path.
const ProcessedSuffix = ".processed"

// Remuxer rewrites an MP4 with its moov atom at the front of the file.
// Streams are copied, never re-encoded.
type Remuxer struct {
	runner Runner
	bin    string
}

// NewRemuxer creates a Remuxer that invokes bin (usually "ffmpeg") through runner.
func NewRemuxer(runner Runner, bin string) *Remuxer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Remuxer{runner: runner, bin: bin}
}

// OutputPath returns the path Remux writes to for the given input.
func OutputPath(inputPath string) string {
	return inputPath + ProcessedSuffix
}

// Remux writes a fast-start copy of inputPath and returns its path.
// The caller owns the returned file.
func (m *Remuxer) Remux(ctx context.Context, inputPath string) (string, error) {
	out := OutputPath(inputPath)
	res, err := m.runner.Run(ctx, m.bin,
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-c", "copy",
		"-map_metadata", "0",
		"-movflags", "+faststart",
		"-f", "mp4",
		out,
	)
	if err != nil || res.ExitCode != 0 {
		if rmErr := os.Remove(out); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
		return "", toolError(ErrRemuxFailed, "ffmpeg", res, err)
	}
	return out, nil
}
