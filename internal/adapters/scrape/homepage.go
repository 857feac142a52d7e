// Package scrape extracts dataset metadata from a 10x Genomics dataset
// homepage. The pages are Next.js applications: the full dataset description,
// including per-file download URLs and checksums, ships as JSON inside the
// __NEXT_DATA__ script tag. The scraper turns that JSON into catalog config
// skeletons; a human fills in the curation fields before committing them.
package scrape

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// FileEntry is one downloadable file listed on the homepage.
type FileEntry struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	MD5Sum string `json:"md5sum"`
	Bytes  int64  `json:"size,omitempty"`
}

// Page is the scraped dataset description.
type Page struct {
	Slug        string
	Title       string
	Description string
	PublishedAt string
	Pipeline    string
	Inputs      []FileEntry
	Outputs     []FileEntry
}

// nextData mirrors the slice of the __NEXT_DATA__ payload we consume.
type nextData struct {
	Props struct {
		PageProps struct {
			Dataset struct {
				Title       string `json:"title"`
				Body        string `json:"body"`
				PublishedAt string `json:"publishedAt"`
				Pipeline    struct {
					Version string `json:"version"`
				} `json:"pipeline"`
			} `json:"dataset"`
			Filesets []struct {
				Inputs  []FileEntry `json:"inputs"`
				Outputs []FileEntry `json:"outputs"`
			} `json:"filesets"`
		} `json:"pageProps"`
	} `json:"props"`
	Query struct {
		Slug string `json:"slug"`
	} `json:"query"`
}

// FetchPage downloads and scrapes a dataset homepage.
func FetchPage(client *http.Client, url string) (*Page, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}
	return ParsePage(resp.Body)
}

// ParsePage scrapes a dataset homepage document.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	payload := findNextData(doc)
	if payload == "" {
		return nil, fmt.Errorf("no __NEXT_DATA__ script found")
	}

	var data nextData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("parse dataset props: %w", err)
	}

	props := data.Props.PageProps
	if props.Dataset.Title == "" {
		return nil, fmt.Errorf("no dataset props in page")
	}

	page := &Page{
		Slug:        data.Query.Slug,
		Title:       props.Dataset.Title,
		Description: props.Dataset.Body,
		PublishedAt: props.Dataset.PublishedAt,
		Pipeline:    props.Dataset.Pipeline.Version,
	}
	for _, fs := range props.Filesets {
		page.Inputs = append(page.Inputs, fs.Inputs...)
		page.Outputs = append(page.Outputs, fs.Outputs...)
	}
	return page, nil
}

// findNextData walks the document for <script id="__NEXT_DATA__"> and returns
// its text content.
func findNextData(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == "__NEXT_DATA__" {
				var sb strings.Builder
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						sb.WriteString(c.Data)
					}
				}
				return sb.String()
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := findNextData(c); s != "" {
			return s
		}
	}
	return ""
}

// Output looks up an output file whose title matches pattern (case-insensitive
// substring match on the sanitized title).
func (p *Page) Output(pattern string) (FileEntry, bool) {
	want := Sanitize(pattern)
	for _, f := range p.Outputs {
		if strings.Contains(Sanitize(f.Title), want) {
			return f, true
		}
	}
	return FileEntry{}, false
}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	sepRuns       = regexp.MustCompile(`-{2,}`)
	nonName       = regexp.MustCompile(`[ ._/,;:()']`)
)

// Sanitize lowers a display title into a kebab-case identifier.
func Sanitize(s string) string {
	s = strings.NewReplacer("FFPE", "ffpe", "CytAssist", "cytassist", "FASTQ", "fastq").Replace(s)
	s = camelBoundary.ReplaceAllString(s, "$1-$2")
	s = strings.ToLower(s)
	s = nonName.ReplaceAllString(s, "-")
	s = sepRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
