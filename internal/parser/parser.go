// Package parser extracts Facebook comments from rendered page HTML.
package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/vkotov/fbscraper/internal/scraper"
)

const maxRepliesPerComment = 5

// Parser implements scraper.CommentParser with goquery.
//
// Facebook serves several markup generations depending on the host (desktop,
// mobile) and the logged-in state, so element discovery is a cascade of
// selectors tried in order until one of them matches.
type Parser struct {
	logger *zap.Logger
}

// New constructs a Parser.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

var (
	dataFTPostID  = regexp.MustCompile(`top_level_post_id["']?\s*:\s*["']?(\d+)`)
	classComment  = regexp.MustCompile(`(?i)comment`)
	firstInteger  = regexp.MustCompile(`(\d+)`)
	classReply    = regexp.MustCompile(`(?i)reply`)
	hasTopLevelID = regexp.MustCompile(`top_level_post_id`)
)

// ExtractComments parses the document and returns at most limit comments.
// Elements whose extracted text is empty are dropped.
func (p *Parser) ExtractComments(html string, limit int) ([]scraper.Comment, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	elements := findCommentElements(doc)
	p.logger.Debug("located candidate comment elements", zap.Int("count", len(elements)))

	comments := make([]scraper.Comment, 0, len(elements))
	for _, el := range elements {
		if limit > 0 && len(comments) >= limit {
			break
		}
		c := extractComment(el, true)
		if c.Text == "" {
			continue
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// findCommentElements tries each known comment container shape in order,
// returning the matches of the first shape that yields anything.
func findCommentElements(doc *goquery.Document) []*goquery.Selection {
	cascades := []func() *goquery.Selection{
		func() *goquery.Selection {
			return doc.Find("[data-ft]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				ft, _ := s.Attr("data-ft")
				return hasTopLevelID.MatchString(ft)
			})
		},
		func() *goquery.Selection {
			return doc.Find("div[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				class, _ := s.Attr("class")
				return classComment.MatchString(class)
			})
		},
		func() *goquery.Selection {
			return doc.Find("div[data-testid]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				id, _ := s.Attr("data-testid")
				return classComment.MatchString(id)
			})
		},
		func() *goquery.Selection { return doc.Find(`div[role="article"]`) },
		func() *goquery.Selection {
			return doc.Find("[data-sigil]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				sigil, _ := s.Attr("data-sigil")
				return classComment.MatchString(sigil)
			})
		},
	}
	for _, cascade := range cascades {
		sel := cascade()
		if sel.Length() > 0 {
			out := make([]*goquery.Selection, 0, sel.Length())
			sel.Each(func(_ int, s *goquery.Selection) {
				out = append(out, s)
			})
			return out
		}
	}
	return nil
}

func extractComment(el *goquery.Selection, withReplies bool) scraper.Comment {
	c := scraper.Comment{
		Text:    extractText(el),
		Time:    extractTime(el),
		Likes:   extractLikes(el),
		ID:      extractCommentID(el),
		Replies: []scraper.Comment{},
	}
	c.Author, c.AuthorID = extractAuthor(el)
	if withReplies {
		c.Replies = extractReplies(el)
	}
	return c
}

var textSelectors = []string{
	`div[data-testid="comment"]`,
	".userContent",
	`[data-sigil="comment-body"]`,
	".comment-body",
	`span[dir="auto"]`,
}

func extractText(el *goquery.Selection) string {
	for _, sel := range textSelectors {
		if t := strings.TrimSpace(el.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	// Fallback: concatenate the element's own text nodes, skipping link and
	// button labels (author names, "Like", "Reply").
	var parts []string
	el.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
			return
		}
		switch goquery.NodeName(s) {
		case "a", "button", "script", "style":
			return
		default:
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		}
	})
	return strings.TrimSpace(strings.Join(parts, " "))
}

var authorSelectors = []string{
	`a[role="link"]`,
	"strong a",
	"h3 a",
	`[data-hovercard-prefer-more-content-show="1"]`,
	`a[href*="/user/"]`,
	`a[href*="/profile.php"]`,
}

func extractAuthor(el *goquery.Selection) (author, authorID string) {
	for _, sel := range authorSelectors {
		link := el.Find(sel).First()
		if link.Length() == 0 {
			continue
		}
		author = strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		authorID = authorIDFromHref(href)
		if author != "" {
			return author, authorID
		}
	}
	return "", ""
}

func authorIDFromHref(href string) string {
	if idx := strings.Index(href, "/user/"); idx >= 0 {
		id := href[idx+len("/user/"):]
		id, _, _ = strings.Cut(id, "/")
		id, _, _ = strings.Cut(id, "?")
		return id
	}
	if idx := strings.Index(href, "profile.php?id="); idx >= 0 {
		id := href[idx+len("profile.php?id="):]
		id, _, _ = strings.Cut(id, "&")
		return id
	}
	return ""
}

var timeSelectors = []string{
	`a[href*="/comment/"]`,
	"a abbr",
	"[data-tooltip-content]",
	"a[title]",
}

func extractTime(el *goquery.Selection) string {
	for _, sel := range timeSelectors {
		node := el.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if title, ok := node.Attr("title"); ok && title != "" {
			return title
		}
		if tip, ok := node.Attr("data-tooltip-content"); ok && tip != "" {
			return tip
		}
		if t := strings.TrimSpace(node.Text()); t != "" {
			return t
		}
	}
	return ""
}

var likesSelectors = []string{
	`[aria-label*="Like"]`,
	`[data-sigil="reactions-count"]`,
	".like-count",
}

func extractLikes(el *goquery.Selection) int {
	for _, sel := range likesSelectors {
		node := el.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := strings.NewReplacer(",", "", ".", "").Replace(node.Text())
		if m := firstInteger.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

func extractCommentID(el *goquery.Selection) string {
	if id, ok := el.Attr("id"); ok && id != "" {
		return id
	}
	ft, ok := el.Attr("data-ft")
	if !ok || ft == "" {
		return ""
	}
	if !hasTopLevelID.MatchString(ft) {
		return ft
	}
	// data-ft is usually a JSON blob; fall back to a regex scan when not.
	if strings.HasPrefix(ft, "{") {
		var blob map[string]any
		if err := json.Unmarshal([]byte(ft), &blob); err == nil {
			if id, ok := blob["top_level_post_id"].(string); ok {
				return id
			}
		}
	}
	if m := dataFTPostID.FindStringSubmatch(ft); m != nil {
		return m[1]
	}
	return ""
}

func extractReplies(el *goquery.Selection) []scraper.Comment {
	replies := []scraper.Comment{}
	el.Find("div[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return classReply.MatchString(class)
	}).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxRepliesPerComment {
			return false
		}
		r := extractComment(s, false)
		if r.Text != "" {
			replies = append(replies, r)
		}
		return true
	})
	return replies
}
