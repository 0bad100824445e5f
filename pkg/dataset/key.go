package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// segKind tags a path segment.
type segKind uint8

const (
	segField segKind = iota
	segIndex
)

// Segment is one step in a dataset path: either a named field or a
// numeric index.
type Segment struct {
	kind  segKind
	name  string
	index int
}

// Field returns a named-field segment.
func Field(name string) Segment {
	return Segment{kind: segField, name: name}
}

// Index returns an index segment.
func Index(i int) Segment {
	return Segment{kind: segIndex, index: i}
}

// IsField reports whether the segment is a named field.
func (s Segment) IsField() bool { return s.kind == segField }

// Name returns the field name; empty for index segments.
func (s Segment) Name() string { return s.name }

// Index returns the index; zero for field segments.
func (s Segment) Index() int { return s.index }

// String renders the segment for diagnostics.
func (s Segment) String() string {
	if s.kind == segIndex {
		return "#" + strconv.Itoa(s.index)
	}
	return s.name
}

// Key identifies a dataset: a workspace plus a hierarchical path.
type Key struct {
	Workspace string
	Path      []Segment
}

// K is shorthand for building a key.
func K(workspace string, path ...Segment) Key {
	return Key{Workspace: workspace, Path: path}
}

// Canonical flattens the key to a single string. The encoding is
// injective: the workspace and every field name are length-prefixed and
// segment kinds carry distinct tags, so no two distinct keys collapse to
// the same string regardless of what characters the names contain. The
// separators exist only for readability.
func (k Key) Canonical() string {
	var b strings.Builder
	b.WriteByte('w')
	b.WriteString(strconv.Itoa(len(k.Workspace)))
	b.WriteByte(':')
	b.WriteString(k.Workspace)
	for _, s := range k.Path {
		b.WriteByte('/')
		if s.kind == segIndex {
			b.WriteByte('i')
			b.WriteString(strconv.Itoa(s.index))
		} else {
			b.WriteByte('f')
			b.WriteString(strconv.Itoa(len(s.name)))
			b.WriteByte(':')
			b.WriteString(s.name)
		}
	}
	return b.String()
}

// ParseCanonical inverts Canonical. Invalidation feeds carry canonical
// strings on the wire and reconstruct structured keys with it.
func ParseCanonical(s string) (Key, error) {
	rest := s
	ws, rest, err := takeLengthPrefixed(rest, 'w')
	if err != nil {
		return Key{}, fmt.Errorf("dataset: bad canonical key %q: %w", s, err)
	}
	k := Key{Workspace: ws}
	for len(rest) > 0 {
		if rest[0] != '/' || len(rest) < 2 {
			return Key{}, fmt.Errorf("dataset: bad canonical key %q: want segment separator", s)
		}
		rest = rest[1:]
		switch rest[0] {
		case 'i':
			j := 1
			for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
				j++
			}
			n, convErr := strconv.Atoi(rest[1:j])
			if convErr != nil {
				return Key{}, fmt.Errorf("dataset: bad canonical key %q: %w", s, convErr)
			}
			k.Path = append(k.Path, Index(n))
			rest = rest[j:]
		case 'f':
			var name string
			name, rest, err = takeLengthPrefixed(rest, 'f')
			if err != nil {
				return Key{}, fmt.Errorf("dataset: bad canonical key %q: %w", s, err)
			}
			k.Path = append(k.Path, Field(name))
		default:
			return Key{}, fmt.Errorf("dataset: bad canonical key %q: unknown segment tag %q", s, rest[0])
		}
	}
	return k, nil
}

// takeLengthPrefixed consumes "<tag><len>:<len bytes>" from s.
func takeLengthPrefixed(s string, tag byte) (value, rest string, err error) {
	if len(s) == 0 || s[0] != tag {
		return "", "", fmt.Errorf("want tag %q", tag)
	}
	s = s[1:]
	j := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == 0 || j >= len(s) || s[j] != ':' {
		return "", "", fmt.Errorf("want length prefix after tag %q", tag)
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil {
		return "", "", err
	}
	s = s[j+1:]
	if len(s) < n {
		return "", "", fmt.Errorf("short value after tag %q", tag)
	}
	return s[:n], s[n:], nil
}

// String renders the key for logs and errors.
func (k Key) String() string {
	parts := make([]string, 0, len(k.Path)+1)
	parts = append(parts, k.Workspace)
	for _, s := range k.Path {
		parts = append(parts, s.String())
	}
	return fmt.Sprintf("dataset(%s)", strings.Join(parts, "."))
}
