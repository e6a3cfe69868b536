package mitre

import (
	"context"
	"net/http"
	"strings"

	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/version"
	"golang.org/x/net/html"
)

const versionMarker = "cwe list version"

// VersionScraper reads the published catalog version from the downloads page.
type VersionScraper struct {
	URL    string
	Client *http.Client
}

// NewVersionScraper creates a scraper for url, or the official downloads
// page when url is empty.
func NewVersionScraper(url string) *VersionScraper {
	if url == "" {
		url = constants.DownloadsPageURL
	}
	return &VersionScraper{
		URL:    url,
		Client: &http.Client{Timeout: constants.DefaultHTTPTimeout},
	}
}

var _ version.Provider = (*VersionScraper)(nil)

// RemoteVersion returns the last word of the first h2.header heading that
// mentions the CWE List Version.
func (s *VersionScraper) RemoteVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", errors.WrapResource("create", "request", s.URL, err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.WrapFetch(s.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewFetchError(s.URL, resp.StatusCode, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", errors.WrapParse("html", s.URL, err)
	}

	if v := findVersion(doc); v != "" {
		return v, nil
	}
	return "", errors.NewParseError("html", s.URL, "no CWE List Version heading found", nil)
}

func findVersion(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "h2" && hasClass(n, "header") {
		text := textContent(n)
		if strings.Contains(strings.ToLower(text), versionMarker) {
			if fields := strings.Fields(text); len(fields) > 0 {
				return fields[len(fields)-1]
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := findVersion(c); v != "" {
			return v
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
