package voice

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactName is the filename of the serialized voice model.
const ArtifactName = "model.json.gz"

// Artifact is the persisted voice model: the embedding plus the metadata
// needed to reproduce or validate it later.
type Artifact struct {
	Embedding     Embedding `json:"embedding"`
	EmbeddingSize int       `json:"embeddingSize"`
	ModelVersion  string    `json:"modelVersion"`
	Encoder       string    `json:"encoder"`
	CreatedAt     time.Time `json:"createdAt"`
}

// WriteArtifact serializes the embedding with metadata into dir and
// returns the artifact path.
func WriteArtifact(emb Embedding, dir, modelVersion, encoderTag string) (string, error) {
	if len(emb) == 0 {
		return "", fmt.Errorf("voice: write artifact: empty embedding")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("voice: write artifact: %w", err)
	}

	art := Artifact{
		Embedding:     emb,
		EmbeddingSize: len(emb),
		ModelVersion:  modelVersion,
		Encoder:       encoderTag,
		CreatedAt:     time.Now().UTC(),
	}

	path := filepath.Join(dir, ArtifactName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("voice: write artifact: %w", err)
	}
	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(art); err != nil {
		zw.Close()
		f.Close()
		return "", fmt.Errorf("voice: encode artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("voice: finalize artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("voice: close artifact: %w", err)
	}
	return path, nil
}

// ReadArtifact loads a previously written artifact.
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("voice: read artifact: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("voice: read artifact %s: %w", path, err)
	}
	defer zr.Close()

	var art Artifact
	if err := json.NewDecoder(zr).Decode(&art); err != nil {
		return nil, fmt.Errorf("voice: decode artifact %s: %w", path, err)
	}
	return &art, nil
}
