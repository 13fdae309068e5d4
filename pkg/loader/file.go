package loader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// maxLineSize bounds a single JSONL line.
const maxLineSize = 10 * 1024 * 1024

// FileSource loads records from a JSON, JSONL or YAML file.
type FileSource struct {
	Path   string
	Format Format
}

// NewFileSource creates a file source. FormatAuto picks the format from the
// file extension.
func NewFileSource(path string, format Format) *FileSource {
	if format == FormatAuto {
		format = DetectFormat(path)
	}
	return &FileSource{Path: path, Format: format}
}

// Name returns the file path.
func (s *FileSource) Name() string {
	return s.Path
}

// Load reads and decodes the file.
func (s *FileSource) Load(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &LoadError{Source: s.Path, Cause: err}
	}
	records, err := Decode(bytes.NewReader(data), s.Format)
	if err != nil {
		return nil, &LoadError{Source: s.Path, Cause: err}
	}
	return tagSource(records, s.Path), nil
}

// LoadRecordsFromFile is a convenience wrapper around FileSource.
func LoadRecordsFromFile(path string) ([]model.Record, error) {
	return NewFileSource(path, FormatAuto).Load(context.Background())
}

// Decode reads records in the given format. JSON input may be either an
// array or one object per line; the first non-space byte decides.
func Decode(r io.Reader, format Format) ([]model.Record, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(r)
	case FormatJSONL:
		return decodeJSONL(r)
	case FormatJSON, FormatAuto:
		br := bufio.NewReader(r)
		first, err := peekNonSpace(br)
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if first == '[' {
			return decodeJSONArray(br)
		}
		return decodeJSONL(br)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

func decodeJSONArray(r io.Reader) ([]model.Record, error) {
	var records []model.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return records, nil
}

func decodeJSONL(r io.Reader) ([]model.Record, error) {
	var records []model.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	return records, nil
}

func decodeYAML(r io.Reader) ([]model.Record, error) {
	var records []model.Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	return records, nil
}
