package extractor

import (
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/newscrawler/internal/models"
)

// parsePage fetches targetURL and extracts the fields of a Candidate from
// standard article metadata (title tag, meta description/author,
// OpenGraph image, time/date tags), converting the main content to
// markdown via html-to-markdown.
func parsePage(client *http.Client, targetURL string) (models.Candidate, error) {
	candidate := models.Candidate{SourceURL: targetURL}

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		return candidate, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return candidate, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return candidate, err
	}

	candidate.Title = extractTitle(doc)
	candidate.Author = extractMeta(doc, "author")
	candidate.ImageURL = extractOpenGraph(doc, "og:image")
	candidate.PublishDate = extractPublishDate(doc)

	mainContent := extractMainContentHTML(doc)
	if mainContent != "" {
		converter := md.NewConverter(targetURL, true, nil)
		if markdown, convErr := converter.ConvertString(mainContent); convErr == nil {
			candidate.Content = strings.TrimSpace(markdown)
		}
	}

	return candidate, nil
}

func extractTitle(doc *goquery.Document) string {
	if og := extractOpenGraph(doc, "og:title"); og != "" {
		return og
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func extractMeta(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta[name='" + name + "']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("content"); ok {
			content = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return content
}

func extractOpenGraph(doc *goquery.Document, property string) string {
	var content string
	doc.Find("meta[property='" + property + "']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("content"); ok {
			content = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return content
}

func extractPublishDate(doc *goquery.Document) *time.Time {
	candidates := []string{
		"meta[property='article:published_time']",
		"meta[name='publish-date']",
		"meta[name='date']",
		"time[datetime]",
	}
	for _, sel := range candidates {
		var raw string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr("content"); ok && v != "" {
				raw = v
				return false
			}
			if v, ok := s.Attr("datetime"); ok && v != "" {
				raw = v
				return false
			}
			return true
		})
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return &t
			}
		}
	}
	return nil
}

func extractMainContentHTML(doc *goquery.Document) string {
	selection := doc.Find("article").First()
	if selection.Length() == 0 {
		selection = doc.Find("main, [role=main]").First()
	}
	if selection.Length() == 0 {
		selection = doc.Find("body")
	}
	selection.Find("script, style, noscript, nav, header, footer, aside").Remove()
	html, err := selection.Html()
	if err != nil {
		return ""
	}
	return html
}
