package listing

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// The known listing shapes, tried in fixed priority order. The first
// variant yielding at least one plausible entry wins; each variant is a
// pure function from raw bytes to entries.
//
//  1. h5ai JSON payload ({"items": [...]})
//  2. h5ai HTML fallback (<div id="fallback"> table)
//  3. datatable listings (<table id="example">)
//  4. generic Apache/lighttpd autoindex table
//  5. nginx-style <pre> anchor list
func parseListing(body []byte, base *url.URL) ([]Entry, string, *FetchError) {
	if entries := parseH5aiJSON(body, base); len(entries) > 0 {
		return entries, "h5ai-json", nil
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err == nil {
		if fb := findElement(doc, "div", "fallback"); fb != nil {
			if entries := parseTableRows(fb, base, colsH5ai); len(entries) > 0 {
				return entries, "h5ai-fallback", nil
			}
		}

		if dt := findElement(doc, "table", "example"); dt != nil {
			if entries := parseTableRows(dt, base, colsDatatable); len(entries) > 0 {
				return entries, "datatable", nil
			}
		}

		if entries := parseTableRows(doc, base, colsGeneric); len(entries) > 0 {
			return entries, "generic-table", nil
		}

		if entries := parsePreAnchors(doc, base); len(entries) > 0 {
			return entries, "pre-anchors", nil
		}
	}

	return nil, "", &FetchError{Kind: KindParse, URL: base.String()}
}

// h5aiItem is one entry of an h5ai JSON payload. Time is a millisecond
// epoch, Size is bytes; both may be absent.
type h5aiItem struct {
	Href string `json:"href"`
	Time int64  `json:"time"`
	Size *int64 `json:"size"`
}

func parseH5aiJSON(body []byte, base *url.URL) []Entry {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var payload struct {
		Items []h5aiItem `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil
	}

	var entries []Entry
	for _, item := range payload.Items {
		childURL, isDir, ok := resolveChild(base, item.Href)
		if !ok {
			continue
		}

		size := int64(-1)
		if !isDir && item.Size != nil {
			size = *item.Size
		}

		modified := ""
		if item.Time > 0 {
			modified = time.UnixMilli(item.Time).UTC().Format("2006-01-02 15:04")
		}

		entries = append(entries, Entry{
			Name:     nameFromURL(childURL),
			URL:      childURL,
			IsDir:    isDir,
			Size:     size,
			Modified: modified,
		})
	}

	return entries
}

// tableColumns maps listing table cells to entry attributes. Column
// indexes of -1 mean the listing shape does not carry the attribute.
type tableColumns struct {
	name     int
	modified int
	size     int
	minCells int
}

var (
	// Apache autoindex: [icon] [name] [last modified] [size] [description]
	colsGeneric = tableColumns{name: 1, modified: 2, size: 3, minCells: 2}
	// h5ai fallback: [icon] [name] [date] [size]
	colsH5ai = tableColumns{name: 1, modified: 2, size: 3, minCells: 4}
	// datatable: [icon] [name] [type] [size] [date]
	colsDatatable = tableColumns{name: 1, modified: 4, size: 3, minCells: 2}
)

// parseTableRows extracts entries from the first table under root using
// the given column layout.
func parseTableRows(root *html.Node, base *url.URL, cols tableColumns) []Entry {
	table := findElement(root, "table", "")
	if table == nil {
		return nil
	}

	var rows []*html.Node
	findAll(table, "tr", &rows)

	var entries []Entry
	for _, tr := range rows {
		var cells []*html.Node
		findAll(tr, "td", &cells)
		if len(cells) < cols.minCells {
			continue
		}

		a := findElement(cells[cols.name], "a", "")
		if a == nil {
			continue
		}

		href := attrValue(a, "href")
		label := strings.TrimSpace(textContent(a))
		if strings.EqualFold(label, "Parent Directory") {
			continue
		}

		childURL, isDir, ok := resolveChild(base, href)
		if !ok {
			continue
		}

		modified := ""
		if cols.modified >= 0 && cols.modified < len(cells) {
			modified = normalizeCell(textContent(cells[cols.modified]))
		}

		size := int64(-1)
		if !isDir && cols.size >= 0 && cols.size < len(cells) {
			size = ParseSize(textContent(cells[cols.size]))
		}

		name := strings.TrimSuffix(label, "/")
		if name == "" {
			name = nameFromURL(childURL)
		}

		entries = append(entries, Entry{
			Name:     name,
			URL:      childURL,
			IsDir:    isDir,
			Size:     size,
			Modified: modified,
		})
	}

	return entries
}

// preDetails matches the "19-Aug-2025 12:33   1234" tail nginx autoindex
// prints after each anchor.
var preDetails = regexp.MustCompile(`(\d{2}-\w{3}-\d{4} \d{2}:\d{2})\s+(\S+)`)

// parsePreAnchors handles nginx-style listings: one <pre> block with an
// anchor per line followed by plain-text date and size.
func parsePreAnchors(doc *html.Node, base *url.URL) []Entry {
	pre := findElement(doc, "pre", "")
	if pre == nil {
		return nil
	}

	var entries []Entry
	for n := pre.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode || n.Data != "a" {
			continue
		}

		href := attrValue(n, "href")
		childURL, isDir, ok := resolveChild(base, href)
		if !ok {
			continue
		}

		label := strings.TrimSpace(textContent(n))
		name := strings.TrimSuffix(label, "/")
		if name == "" {
			name = nameFromURL(childURL)
		}

		modified := ""
		size := int64(-1)
		if n.NextSibling != nil && n.NextSibling.Type == html.TextNode {
			if m := preDetails.FindStringSubmatch(n.NextSibling.Data); m != nil {
				modified = m[1]
				if !isDir {
					size = ParseSize(m[2])
				}
			}
		}

		entries = append(entries, Entry{
			Name:     name,
			URL:      childURL,
			IsDir:    isDir,
			Size:     size,
			Modified: modified,
		})
	}

	return entries
}

// resolveChild resolves href against the directory URL and accepts it
// only if it stays strictly below the directory. Parent links, sort
// links (query-only hrefs) and anything pointing at another host fall
// out of this check naturally.
func resolveChild(base *url.URL, href string) (childURL string, isDir, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false, false
	}

	resolved := base.ResolveReference(ref)
	resolved.RawQuery = ""
	resolved.Fragment = ""

	s := resolved.String()
	baseStr := base.String()
	if !strings.HasPrefix(s, baseStr) || len(s) <= len(baseStr) {
		return "", false, false
	}

	return s, strings.HasSuffix(resolved.Path, "/"), true
}

// nameFromURL derives a display name from the last path segment.
func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := strings.TrimSuffix(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	segment := path[idx+1:]
	if decoded, err := url.PathUnescape(segment); err == nil {
		return decoded
	}
	return segment
}

// normalizeCell collapses a table cell's text to a single trimmed line.
func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "-" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

// --- minimal DOM helpers over x/net/html ---

// findElement returns the first element with the given tag (and id, when
// id is non-empty) in document order.
func findElement(n *html.Node, tag, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		if id == "" || attrValue(n, "id") == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag, id); found != nil {
			return found
		}
	}
	return nil
}

// findAll appends every element with the given tag in document order.
func findAll(n *html.Node, tag string, out *[]*html.Node) {
	if n.Type == html.ElementNode && n.Data == tag {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		findAll(c, tag, out)
	}
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
