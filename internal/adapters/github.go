package adapters

import "fmt"

// GitHubAdapter handles issue-tracker webhooks in the GitHub event shape.
// An event can carry both an issue and a comment on it; each becomes its own
// feedback item.
type GitHubAdapter struct{}

func (GitHubAdapter) Source() string { return "github" }

func (GitHubAdapter) Adapt(payload any) []Item {
	body := asMap(payload)
	if body == nil {
		return nil
	}

	var items []Item

	issue := childMap(body, "issue")
	number := ""
	title := ""
	if issue != nil {
		number = numberString(issue["number"])
		title = firstString(issue, "title")

		header := fmt.Sprintf("Issue #%s: %s", number, title)
		content := header
		if text := firstString(issue, "body", "body_text"); text != "" {
			content = header + "\n\n" + text
		}

		metadata := map[string]any{"type": "issue"}
		if number != "" {
			metadata["issue_number"] = number
		}
		if action := firstString(body, "action"); action != "" {
			metadata["action"] = action
		}
		if url := firstString(issue, "html_url", "url"); url != "" {
			metadata["url"] = url
		}
		withAuthor(metadata, firstString(childMap(issue, "user"), "login", "name"))

		items = append(items, Item{Content: content, Metadata: metadata})
	}

	if comment := childMap(body, "comment"); comment != nil {
		if text := firstString(comment, "body", "body_text"); text != "" {
			header := "Comment"
			if number != "" {
				header = fmt.Sprintf("Comment on issue #%s: %s", number, title)
			}

			metadata := map[string]any{"type": "comment"}
			if number != "" {
				metadata["issue_number"] = number
			}
			if url := firstString(comment, "html_url", "url"); url != "" {
				metadata["url"] = url
			}
			withAuthor(metadata, firstString(childMap(comment, "user"), "login", "name"))

			items = append(items, Item{Content: header + "\n\n" + text, Metadata: metadata})
		}
	}

	return items
}
