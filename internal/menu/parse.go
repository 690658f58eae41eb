// Package menu reads and writes the bracket/tab menu dialect:
//
//	[Homepage](/)
//	[Services]()
//		[Plumbing](services/plumbing)
//	Free text at depth zero becomes a paragraph.
package menu

import (
	"regexp"
	"strings"
)

// Node is one link in the menu tree.
type Node struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Children []*Node `json:"children"`
}

// Menu is a parsed menu.
type Menu struct {
	Paragraphs []string `json:"paragraphs"`
	Links      []*Node  `json:"links"`
}

var linkLine = regexp.MustCompile(`^\[(.*?)\]\((.*?)\)`)

// Parse builds the link tree. Nested free-text lines are ignored. A nested
// link with no open ancestor is detached, and so is its subtree.
func Parse(text string) Menu {
	out := Menu{Paragraphs: []string{}, Links: []*Node{}}
	var stack []*Node

	for raw := range strings.Lines(text) {
		raw = strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		line := strings.TrimLeft(raw, "\t")
		depth := len(raw) - len(line)

		m := linkLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			if depth == 0 {
				out.Paragraphs = append(out.Paragraphs, strings.TrimSpace(raw))
			}
			continue
		}

		node := &Node{Title: m[1], URL: normalizeURL(m[2]), Children: []*Node{}}
		if depth == 0 {
			out.Links = append(out.Links, node)
			stack = []*Node{node}
			continue
		}

		if len(stack) > depth {
			stack = stack[:depth]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}

	return out
}

func normalizeURL(u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "/") {
		return u
	}
	return "/" + strings.TrimLeft(u, "/")
}

// Serialize writes links back to the dialect, one tab per depth level.
func Serialize(links []*Node) string {
	var b strings.Builder
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.Repeat("\t", depth))
			b.WriteString("[" + n.Title + "](" + n.URL + ")")
			walk(n.Children, depth+1)
		}
	}
	walk(links, 0)
	return b.String()
}

// String renders paragraphs first, then links.
func (m Menu) String() string {
	parts := make([]string, 0, 2)
	if len(m.Paragraphs) > 0 {
		parts = append(parts, strings.Join(m.Paragraphs, "\n"))
	}
	if links := Serialize(m.Links); links != "" {
		parts = append(parts, links)
	}
	return strings.Join(parts, "\n")
}
