package adapters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EmailAdapter handles inbound feedback email in the shape produced by
// mail-forwarding hooks. Plain-text bodies are preferred; when only an HTML
// body is present the visible text is extracted from it.
type EmailAdapter struct{}

func (EmailAdapter) Source() string { return "email" }

func (EmailAdapter) Adapt(payload any) []Item {
	body := asMap(payload)
	if body == nil {
		return nil
	}

	subject := firstString(body, "subject")
	text := firstString(body, "body", "text", "plain")
	if text == "" {
		if html := firstString(body, "html", "body_html"); html != "" {
			text = htmlToText(html)
		}
	}

	content := text
	if subject != "" {
		if content != "" {
			content = "Subject: " + subject + "\n\n" + content
		} else {
			content = "Subject: " + subject
		}
	}
	if content == "" {
		return nil
	}

	metadata := map[string]any{"type": "email"}
	if id := firstString(body, "message_id"); id != "" {
		metadata["message_id"] = id
	}
	withAuthor(metadata, firstString(body, "from", "sender"))

	return []Item{{Content: content, Metadata: metadata}}
}

// htmlToText strips markup and collapses whitespace. If the fragment cannot
// be parsed the raw input is returned so the item is never lost.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
