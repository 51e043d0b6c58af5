package youtube

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/ytscan/internal/tree"
)

// initialDataMarkers are the assignments that introduce ytInitialData, most
// specific first.
var initialDataMarkers = []*regexp.Regexp{
	regexp.MustCompile(`var\s+ytInitialData\s*=\s*`),
	regexp.MustCompile(`window\[\s*["']ytInitialData["']\s*\]\s*=\s*`),
	regexp.MustCompile(`ytInitialData\s*=\s*`),
}

// titleSuffix is appended by YouTube to every page title.
const titleSuffix = " - YouTube"

// ExtractInitialData finds the ytInitialData assignment in an HTML page and
// decodes the assigned object. Inline scripts are searched first; when the
// markup cannot be parsed or no script carries the marker, the raw page is
// searched as well.
func ExtractInitialData(page []byte) (*tree.Node, error) {
	for _, script := range inlineScripts(page) {
		if doc, ok := decodeAssigned(script); ok {
			return doc, nil
		}
	}
	if doc, ok := decodeAssigned(string(page)); ok {
		return doc, nil
	}
	return nil, ErrNoInitialData
}

func decodeAssigned(src string) (*tree.Node, bool) {
	for _, marker := range initialDataMarkers {
		for _, loc := range marker.FindAllStringIndex(src, -1) {
			object, ok := balancedObject(src, loc[1])
			if !ok {
				continue
			}
			doc, err := tree.DecodeBytes([]byte(object))
			if err != nil || !doc.IsObject() {
				continue
			}
			return doc, true
		}
	}
	return nil, false
}

// balancedObject returns the JSON object that starts at src[start]. Braces
// inside string literals are ignored and backslash escapes are honored.
func balancedObject(src string, start int) (string, bool) {
	if start >= len(src) || src[start] != '{' {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(src); i++ {
		c := src[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[start : i+1], true
			}
		}
	}
	return "", false
}

// inlineScripts returns the text of every <script> element that has no src.
func inlineScripts(page []byte) []string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var scripts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script && getAttr(n, "src") == "" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			if sb.Len() > 0 {
				scripts = append(scripts, sb.String())
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return scripts
}

// PageTitle returns the text of the first <title> element with whitespace
// collapsed, or "" when there is none.
func PageTitle(page []byte) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// ChannelNameFromTitle strips the " - YouTube" suffix from a page title.
// It returns "" for an empty title or one that is only the suffix.
func ChannelNameFromTitle(title string) string {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), titleSuffix))
	if strings.EqualFold(name, "YouTube") {
		return ""
	}
	return name
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
