package network

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Stats describes what a load kept and dropped.
type Stats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	SelfLoops  int `json:"self_loops"`
	Duplicates int `json:"duplicates"`
}

// ReadEdgeList parses whitespace-separated "u v [weight]" lines. Blank lines
// and lines starting with '#' are skipped. Weights are validated but not
// used; the epidemic process runs on the unweighted network.
func ReadEdgeList(r io.Reader) (*Graph, Stats, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch len(fields) {
		case 2:
		case 3:
			if _, err := strconv.ParseFloat(fields[2], 64); err != nil {
				return nil, Stats{}, fmt.Errorf("edge list line %d: weight %q: %w", line, fields[2], err)
			}
		default:
			return nil, Stats{}, fmt.Errorf("edge list line %d: want 2 or 3 fields, got %d", line, len(fields))
		}
		b.AddEdge(fields[0], fields[1])
	}
	if err := sc.Err(); err != nil {
		return nil, Stats{}, fmt.Errorf("edge list: %w", err)
	}
	g := b.Graph()
	return g, Stats{Nodes: g.NodeCount(), Edges: g.EdgeCount(), SelfLoops: b.SelfLoops, Duplicates: b.Duplicates}, nil
}

// LoadEdgeList reads an edge list file.
func LoadEdgeList(path string) (*Graph, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open network %s: %w", path, err)
	}
	defer f.Close()
	g, st, err := ReadEdgeList(f)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, st, nil
}
