// Command gen_snapshots_table rewrites the README's snapshot gallery from
// the golden images of the integration suite. The gallery sits between the
// SNAPSHOTS markers; everything else in the README is left alone.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	startMarker = "<!-- SNAPSHOTS:START -->"
	endMarker   = "<!-- SNAPSHOTS:END -->"
)

func main() {
	readme := flag.String("readme", "README.md", "README to rewrite in place")
	dir := flag.String("snapshots", filepath.Join("test", "integration", "testdata", "snapshots"), "directory of golden PNGs")
	cols := flag.Int("cols", 4, "gallery columns")
	width := flag.Int("width", 80, "image width in pixels")
	flag.Parse()

	if err := run(*readme, *dir, *cols, *width); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(readme, dir string, cols, width int) error {
	shots, err := collectSnapshots(dir)
	if err != nil {
		return err
	}
	return spliceReadme(readme, renderTable(dir, shots, cols, width))
}

type snapshot struct {
	label string
	file  string // URL-escaped file name
}

// collectSnapshots lists golden PNGs, skipping the _actual dumps the suites
// leave behind on mismatch.
func collectSnapshots(dir string) ([]snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var shots []snapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".png") {
			continue
		}
		if strings.Contains(name, "_actual.") {
			continue
		}
		shots = append(shots, snapshot{
			label: strings.TrimSuffix(name, ".png"),
			file:  url.PathEscape(name),
		})
	}
	sort.Slice(shots, func(i, j int) bool { return shots[i].label < shots[j].label })
	return shots, nil
}

// renderTable lays the images out as an HTML grid with a hover zoom.
func renderTable(dir string, shots []snapshot, cols, width int) string {
	if cols <= 0 {
		cols = 3
	}

	var b strings.Builder
	b.WriteString("<table>\n")
	for row := 0; row < len(shots); row += cols {
		b.WriteString("  <tr>\n")
		for col := 0; col < cols; col++ {
			if row+col >= len(shots) {
				b.WriteString("    <td></td>\n")
				continue
			}
			s := shots[row+col]
			src := filepath.ToSlash(filepath.Join(dir, s.file))
			fmt.Fprintf(&b, "    <td align=\"center\"><div style=\"position:relative;display:inline-block;\"><img src=%q width=\"%d\" style=\"display:block;transition:transform 0.2s;\" onmouseover=\"this.style.transform='scale(2)';this.style.zIndex='999';\" onmouseout=\"this.style.transform='scale(1)';this.style.zIndex='1';\" /><br><sub>%s</sub></div></td>\n", src, width, s.label)
		}
		b.WriteString("  </tr>\n")
	}
	b.WriteString("</table>\n")
	return b.String()
}

// spliceReadme replaces the text between the gallery markers, keeping the
// markers themselves in place.
func spliceReadme(path, table string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	text := string(content)
	start := strings.Index(text, startMarker)
	end := strings.Index(text, endMarker)
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("%s: markers %s and %s not found", path, startMarker, endMarker)
	}

	var out strings.Builder
	out.WriteString(text[:start+len(startMarker)])
	out.WriteString("\n")
	out.WriteString(table)
	if !strings.HasPrefix(text[end:], "\n") {
		out.WriteString("\n")
	}
	out.WriteString(text[end:])

	return os.WriteFile(path, []byte(out.String()), 0o644)
}
