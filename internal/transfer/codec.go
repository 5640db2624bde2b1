package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4"

	"github.com/roach88/scriptrunner/internal/canonical"
	"github.com/roach88/scriptrunner/internal/script"
)

// DefaultName is the export file name used when none is given.
const DefaultName = "script-runner.json"

// ErrMalformed is returned when an import blob does not decode into the
// export shape.
var ErrMalformed = errors.New("malformed import")

// ErrUnavailable is returned when a backend cannot read or write a blob.
var ErrUnavailable = errors.New("transfer unavailable")

// lz4Magic starts every lz4 frame.
var lz4Magic = []byte{0x04, 0x22, 0x4d, 0x18}

// Document is the export shape.
type Document struct {
	Scripts []script.Script `json:"scripts"`
}

// Compressed reports whether name asks for an lz4 export.
func Compressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".lz4")
}

// Marshal returns the canonical JSON export of scripts.
func Marshal(scripts []script.Script) ([]byte, error) {
	if scripts == nil {
		scripts = []script.Script{}
	}
	data, err := canonical.Marshal(Document{Scripts: scripts})
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// Encode returns the export of scripts for a file called name.
func Encode(scripts []script.Script, name string) ([]byte, error) {
	data, err := Marshal(scripts)
	if err != nil {
		return nil, err
	}
	if !Compressed(name) {
		return data, nil
	}
	return compress(data)
}

// Decode parses an export blob, plain or lz4-framed. Scripts keep their
// order; missing options take their defaults. Every failure wraps
// ErrMalformed.
func Decode(blob []byte) ([]script.Script, error) {
	if bytes.HasPrefix(blob, lz4Magic) {
		plain, err := decompress(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrMalformed, err)
		}
		blob = plain
	}

	if err := Validate(blob); err != nil {
		return nil, err
	}

	var doc struct {
		Scripts *[]script.Script `json:"scripts"`
	}
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Scripts == nil {
		return nil, fmt.Errorf("%w: missing scripts", ErrMalformed)
	}
	return *doc.Scripts, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress export: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress export: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
