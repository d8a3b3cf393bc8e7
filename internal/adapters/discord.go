package adapters

// DiscordAdapter handles chat messages in the Discord webhook shape. Chat
// messages carry no structured header; the message text is the content.
type DiscordAdapter struct{}

func (DiscordAdapter) Source() string { return "discord" }

func (DiscordAdapter) Adapt(payload any) []Item {
	body := asMap(payload)
	if body == nil {
		return nil
	}

	text := firstString(body, "content", "text", "message")
	if text == "" {
		return nil
	}

	metadata := map[string]any{"type": "message"}
	if id := numberString(body["id"]); id != "" {
		metadata["message_id"] = id
	}
	if channel := numberString(body["channel_id"]); channel != "" {
		metadata["channel_id"] = channel
	}

	author := firstString(childMap(body, "author"), "global_name", "username", "name")
	if author == "" {
		author = firstString(body, "author", "username")
	}
	withAuthor(metadata, author)

	return []Item{{Content: text, Metadata: metadata}}
}
