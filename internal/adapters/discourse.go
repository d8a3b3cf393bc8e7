package adapters

// DiscourseAdapter handles forum post events. The `raw` markdown body is
// preferred over the rendered `cooked` HTML.
type DiscourseAdapter struct{}

func (DiscourseAdapter) Source() string { return "discourse" }

func (DiscourseAdapter) Adapt(payload any) []Item {
	body := asMap(payload)
	if body == nil {
		return nil
	}

	post := childMap(body, "post")
	if post == nil {
		post = body
	}

	text := firstString(post, "raw")
	if text == "" {
		if cooked := firstString(post, "cooked"); cooked != "" {
			text = htmlToText(cooked)
		}
	}
	if text == "" {
		return nil
	}

	title := firstString(post, "topic_title")
	content := text
	if title != "" {
		content = "Forum post in \"" + title + "\"\n\n" + text
	}

	metadata := map[string]any{"type": "forum_post"}
	if id := numberString(post["topic_id"]); id != "" {
		metadata["topic_id"] = id
	}
	if id := numberString(post["id"]); id != "" {
		metadata["post_id"] = id
	}
	withAuthor(metadata, firstString(post, "username", "name"))

	return []Item{{Content: content, Metadata: metadata}}
}
