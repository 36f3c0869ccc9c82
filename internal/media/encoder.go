package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/audionhq/timbre/internal/voice"
)

// Encoder extracts speaker embeddings by invoking an external
// speaker-encoder binary once per clip. The binary receives the input WAV
// and an output path and must write a JSON array of floats.
type Encoder struct {
	Bin string // e.g. "spk-encoder"; required
	Tag string // model identity recorded in artifacts, e.g. "spkrec-ecapa-voxceleb"
}

// Embeddings computes one embedding per input clip. Clips the encoder
// cannot process are logged and skipped. Errors only when no clip at all
// produced an embedding.
func (e *Encoder) Embeddings(ctx context.Context, inputs []string, workDir string) ([]voice.Embedding, error) {
	if e.Bin == "" {
		return nil, fmt.Errorf("media: encoder binary not configured")
	}
	if _, err := exec.LookPath(e.Bin); err != nil {
		return nil, fmt.Errorf("media: encoder binary not found: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("media: encoder: %w", err)
	}

	var embs []voice.Embedding
	for _, input := range inputs {
		emb, err := e.encodeOne(ctx, input, workDir)
		if err != nil {
			log.Printf("media: encode %s: %v", filepath.Base(input), err)
			continue
		}
		embs = append(embs, emb)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("media: no embeddings could be extracted")
	}
	return embs, nil
}

func (e *Encoder) encodeOne(ctx context.Context, input, workDir string) (voice.Embedding, error) {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	outPath := filepath.Join(workDir, stem+".emb.json")

	out, err := runCommand(ctx, e.Bin, "-i", input, "-o", outPath)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w: %s", err, lastLine(out))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("encoder output: %w", err)
	}
	var emb voice.Embedding
	if err := json.Unmarshal(data, &emb); err != nil {
		return nil, fmt.Errorf("encoder output %s: %w", filepath.Base(outPath), err)
	}
	if len(emb) == 0 {
		return nil, fmt.Errorf("encoder produced an empty vector")
	}
	return emb, nil
}
