package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Canonical format for normalized clips.
const (
	TargetSampleRate = 16000
	TargetChannels   = 1

	// DefaultMinClipSeconds drops clips with almost no speech left after
	// silence trimming.
	DefaultMinClipSeconds = 1.0
)

// Normalizer converts source audio to 16 kHz mono PCM WAV with leading
// and trailing silence removed, using ffmpeg.
type Normalizer struct {
	FFmpegBin      string  // defaults to "ffmpeg" on PATH
	MinClipSeconds float64 // defaults to DefaultMinClipSeconds
}

// Normalize processes each input into dir. Sources that fail to convert or
// are shorter than the minimum duration after trimming are logged and
// dropped; an empty result is the caller's decision to treat as fatal.
func (n *Normalizer) Normalize(ctx context.Context, inputs []string, dir string) ([]string, error) {
	ffmpeg := n.FFmpegBin
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpeg); err != nil {
		return nil, fmt.Errorf("media: ffmpeg binary not found: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: normalize: %w", err)
	}

	minSeconds := n.MinClipSeconds
	if minSeconds <= 0 {
		minSeconds = DefaultMinClipSeconds
	}

	var outputs []string
	for _, input := range inputs {
		output, err := n.normalizeOne(ctx, ffmpeg, input, dir)
		if err != nil {
			log.Printf("media: normalize %s: %v", filepath.Base(input), err)
			continue
		}
		seconds, err := Duration(output)
		if err != nil {
			log.Printf("media: inspect %s: %v", filepath.Base(output), err)
			os.Remove(output)
			continue
		}
		if seconds < minSeconds {
			log.Printf("media: %s too short after trimming (%.2fs)", filepath.Base(input), seconds)
			os.Remove(output)
			continue
		}
		outputs = append(outputs, output)
	}
	return outputs, nil
}

func (n *Normalizer) normalizeOne(ctx context.Context, ffmpeg, input, dir string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	output := filepath.Join(dir, stem+"_16k.wav")

	// Trim silence below -30 dB from both ends, then resample.
	args := []string{
		"-y",
		"-i", input,
		"-vn",
		"-af", "silenceremove=start_periods=1:start_threshold=-30dB:stop_periods=1:stop_threshold=-30dB",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"-ac", fmt.Sprintf("%d", TargetChannels),
		output,
	}

	out, err := runCommand(ctx, ffmpeg, args...)
	if err != nil {
		os.Remove(output)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(out))
	}
	return output, nil
}

// runCommand executes an external binary and captures combined output.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	return output.String(), err
}

// lastLine returns the final non-empty line of command output, which for
// ffmpeg is usually the actual error.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
