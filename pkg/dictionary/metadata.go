package dictionary

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata is the identity block decoded from an archive's index document.
type Metadata struct {
	Title       string `json:"title"`
	Revision    string `json:"revision"`
	Description string `json:"description"`
}

// DecodeMetadata parses an index document. Title is required; revision and
// description are optional (revision stays "" when absent). All other fields
// are ignored.
func DecodeMetadata(data []byte) (Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
	}
	if strings.TrimSpace(meta.Title) == "" {
		return Metadata{}, fmt.Errorf("%w: missing title", ErrMalformedMetadata)
	}
	return meta, nil
}
