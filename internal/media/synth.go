package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Synthesizer generates preview audio by invoking an external TTS binary
// that supports voice cloning from a reference clip.
type Synthesizer struct {
	Bin string // e.g. "xtts-cli"; required
}

// Synthesize renders text in the given language using refWav as the voice
// reference and writes the result to outWav.
func (s *Synthesizer) Synthesize(ctx context.Context, refWav, outWav, text, language string) error {
	if s.Bin == "" {
		return fmt.Errorf("media: tts binary not configured")
	}
	if _, err := exec.LookPath(s.Bin); err != nil {
		return fmt.Errorf("media: tts binary not found: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outWav), 0o755); err != nil {
		return fmt.Errorf("media: synthesize: %w", err)
	}

	args := []string{
		"--speaker-wav", refWav,
		"--language", language,
		"--text", text,
		"--out", outWav,
	}
	out, err := runCommand(ctx, s.Bin, args...)
	if err != nil {
		return fmt.Errorf("media: tts: %w: %s", err, lastLine(out))
	}
	if _, err := os.Stat(outWav); err != nil {
		return fmt.Errorf("media: tts produced no output: %w", err)
	}
	return nil
}
