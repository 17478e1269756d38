package media

import (
	"context"
	"encoding/json"
	"fmt"
)

// Geometry holds the pixel dimensions of the first video stream.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Orientation classifies the geometry.
func (g Geometry) Orientation() Orientation {
	return Classify(g.Width, g.Height)
}

// Prober reads stream geometry with ffprobe.
type Prober struct {
	runner Runner
	bin    string
}

// NewProber creates a Prober that invokes bin (usually "ffprobe") through runner.
func NewProber(runner Runner, bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{runner: runner, bin: bin}
}

type probeOutput struct {
	Streams []struct {
		Width  *int `json:"width"`
		Height *int `json:"height"`
	} `json:"streams"`
}

// Probe returns the width and height of the first video stream in the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (Geometry, error) {
	res, err := p.runner.Run(ctx, p.bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)
	if err != nil || res.ExitCode != 0 {
		return Geometry{}, toolError(ErrProbeFailed, "ffprobe", res, err)
	}
	return parseProbeOutput(res.Stdout)
}

func parseProbeOutput(out []byte) (Geometry, error) {
	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Geometry{}, fmt.Errorf("%w: %v", ErrMalformedProbeOutput, err)
	}
	if len(parsed.Streams) == 0 {
		return Geometry{}, fmt.Errorf("%w: no streams reported", ErrMalformedProbeOutput)
	}
	s := parsed.Streams[0]
	if s.Width == nil || s.Height == nil {
		return Geometry{}, fmt.Errorf("%w: stream has no dimensions", ErrMalformedProbeOutput)
	}
	if *s.Width <= 0 || *s.Height <= 0 {
		return Geometry{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrMalformedProbeOutput, *s.Width, *s.Height)
	}
	return Geometry{Width: *s.Width, Height: *s.Height}, nil
}
