package conversion

import (
	"fmt"
	"strings"
)

// Hop is one step of a field path. A plain hop names a column of the
// current table; when more hops follow, that column must be a foreign key
// and the walk continues on the referenced table. A reverse hop names a
// remote table and its column that references the current table's
// primary key.
type Hop struct {
	Column string
	Table  string
}

// Reverse reports whether the hop joins a remote table back to the
// current one.
func (h Hop) Reverse() bool { return h.Table != "" }

// String renders the hop in path syntax.
func (h Hop) String() string {
	if h.Reverse() {
		return h.Table + "(" + h.Column + ")"
	}
	return h.Column
}

// Path is an ordered list of hops.
type Path []Hop

// String renders the path in path syntax.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, h := range p {
		parts[i] = h.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath parses dot-separated hops. "table(column)" denotes a reverse
// hop; dots inside parentheses do not separate hops.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}

	var segments []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("path %q: unbalanced parenthesis", s)
			}
		case '.':
			if depth == 0 {
				segments = append(segments, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("path %q: unbalanced parenthesis", s)
	}
	segments = append(segments, s[start:])

	path := make(Path, 0, len(segments))
	for _, seg := range segments {
		hop, err := parseHop(strings.TrimSpace(seg))
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", s, err)
		}
		path = append(path, hop)
	}
	return path, nil
}

func parseHop(seg string) (Hop, error) {
	if seg == "" {
		return Hop{}, fmt.Errorf("empty hop")
	}
	open := strings.IndexByte(seg, '(')
	if open < 0 {
		if strings.ContainsRune(seg, ')') {
			return Hop{}, fmt.Errorf("hop %q: unbalanced parenthesis", seg)
		}
		return Hop{Column: seg}, nil
	}
	if !strings.HasSuffix(seg, ")") || strings.Count(seg, "(") != 1 {
		return Hop{}, fmt.Errorf("hop %q: expected table(column)", seg)
	}
	table := strings.TrimSpace(seg[:open])
	column := strings.TrimSpace(seg[open+1 : len(seg)-1])
	if table == "" || column == "" {
		return Hop{}, fmt.Errorf("hop %q: expected table(column)", seg)
	}
	return Hop{Table: table, Column: column}, nil
}
