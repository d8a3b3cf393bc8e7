package adapters

// TwitterAdapter handles social mentions in the Twitter/X shape. Both the
// classic `text` and the extended `full_text` fields are recognized.
type TwitterAdapter struct{}

func (TwitterAdapter) Source() string { return "twitter" }

func (TwitterAdapter) Adapt(payload any) []Item {
	body := asMap(payload)
	if body == nil {
		return nil
	}

	text := firstString(body, "full_text", "text")
	if text == "" {
		return nil
	}

	metadata := map[string]any{"type": "mention"}
	if id := firstString(body, "id_str"); id != "" {
		metadata["tweet_id"] = id
	} else if id := numberString(body["id"]); id != "" {
		metadata["tweet_id"] = id
	}

	author := firstString(childMap(body, "user"), "screen_name", "name")
	if author == "" {
		author = firstString(childMap(body, "author"), "username", "name")
	}
	withAuthor(metadata, author)

	return []Item{{Content: text, Metadata: metadata}}
}
