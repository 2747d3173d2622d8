package profile

import (
	"fmt"
	"os"
)

// Parse reads the profile at path and decodes it. I/O errors are returned
// as-is; malformed content yields *EnvelopeError or *ExtractionError.
func Parse(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseBytes(path, raw)
}

// ParseBytes decodes raw profile bytes that were read from path.
func ParseBytes(path string, raw []byte) (Record, error) {
	payload, err := DecodeEnvelope(raw)
	if err != nil {
		return Record{}, err
	}
	return Extract(path, payload)
}
