package model

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ID identifies a record. The empty ID is the root sentinel: a record whose
// Parent is empty hangs directly from the root.
type ID string

// RootID is the parent key shared by all top-level records.
const RootID ID = ""

// ErrEmptyID is returned by Validate for a record without an ID.
var ErrEmptyID = errors.New("empty identifier")

// String returns the ID as plain text.
func (id ID) String() string {
	return string(id)
}

// IsRoot reports whether the ID is the root sentinel.
func (id ID) IsRoot() bool {
	return id == RootID
}

// UnmarshalJSON accepts strings, numbers and null. Numbers are normalized to
// their canonical decimal text, so 1, 1.0, 1e0 and "1" name the same record;
// null decodes to the root sentinel.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = RootID
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	text := string(data)
	canonical, err := canonicalNumber(text)
	if err != nil {
		return fmt.Errorf("id must be a string, number or null, got %s", text)
	}
	*id = ID(canonical)
	return nil
}

// UnmarshalYAML applies the same rules as UnmarshalJSON to YAML scalars.
// Plain scalars that resolve to integers or floats (0x1, 01, 1.0) are
// normalized; quoted scalars are kept as written.
func (id *ID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: id must be a scalar", value.Line)
	}
	switch value.ShortTag() {
	case "!!null":
		*id = RootID
	case "!!int":
		var n int64
		if err := value.Decode(&n); err != nil {
			// Integers beyond int64 fall back to float precision.
			var f float64
			if ferr := value.Decode(&f); ferr != nil {
				return fmt.Errorf("line %d: decode id: %w", value.Line, err)
			}
			*id = ID(formatNumber(f))
			return nil
		}
		*id = ID(strconv.FormatInt(n, 10))
	case "!!float":
		var f float64
		if err := value.Decode(&f); err != nil {
			return fmt.Errorf("line %d: decode id: %w", value.Line, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("line %d: id must be a finite number, got %s", value.Line, value.Value)
		}
		*id = ID(formatNumber(f))
	default:
		*id = ID(value.Value)
	}
	return nil
}

// canonicalNumber rewrites a JSON number literal to its canonical text.
// Integer literals are parsed exactly; anything else goes through float64.
func canonicalNumber(text string) (string, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("not a finite number: %s", text)
	}
	return formatNumber(f), nil
}

// formatNumber prints integral values without a fraction or exponent and
// everything else in the shortest form that round-trips.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Thumbnail references an image shown next to a record's name.
type Thumbnail struct {
	Href        string `json:"href" yaml:"href"`
	Description string `json:"description" yaml:"description"`
}

// IsZero reports whether no thumbnail was supplied.
func (t Thumbnail) IsZero() bool {
	return t.Href == "" && t.Description == ""
}

// Record is a flat input item linked to its parent by ID.
type Record struct {
	ID        ID        `json:"id" yaml:"id"`
	Parent    ID        `json:"parent" yaml:"parent"`
	Name      string    `json:"name" yaml:"name"`
	Thumbnail Thumbnail `json:"thumbnail" yaml:"thumbnail"`

	// Source names the loader the record came from (not serialized)
	Source string `json:"-" yaml:"-"`
}

// IsRoot reports whether the record has no parent.
func (r Record) IsRoot() bool {
	return r.Parent.IsRoot()
}

// DisplayName returns the name, falling back to the ID for unnamed records.
func (r Record) DisplayName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return r.ID.String()
}

// Validate checks if the record is usable as a tree node
func (r *Record) Validate() error {
	if r.ID.IsRoot() {
		return ErrEmptyID
	}
	return nil
}

// Markdown renders the record's payload as a short Markdown document, used by
// detail panes and exports.
func (r Record) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.DisplayName())
	fmt.Fprintf(&sb, "- **ID**: `%s`\n", r.ID)
	if r.IsRoot() {
		sb.WriteString("- **Parent**: _(root)_\n")
	} else {
		fmt.Fprintf(&sb, "- **Parent**: `%s`\n", r.Parent)
	}
	if r.Source != "" {
		fmt.Fprintf(&sb, "- **Source**: %s\n", r.Source)
	}
	if !r.Thumbnail.IsZero() {
		sb.WriteString("\n## Thumbnail\n\n")
		if r.Thumbnail.Description != "" {
			sb.WriteString(r.Thumbnail.Description)
			sb.WriteString("\n\n")
		}
		if r.Thumbnail.Href != "" {
			fmt.Fprintf(&sb, "<%s>\n", r.Thumbnail.Href)
		}
	}
	return sb.String()
}
