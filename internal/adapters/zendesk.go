package adapters

// ZendeskAdapter handles support ticket events. The ticket envelope is
// expected under a `ticket` key but a bare ticket object is accepted too.
type ZendeskAdapter struct{}

func (ZendeskAdapter) Source() string { return "zendesk" }

func (ZendeskAdapter) Adapt(payload any) []Item {
	body := asMap(payload)
	if body == nil {
		return nil
	}

	ticket := childMap(body, "ticket")
	if ticket == nil {
		ticket = body
	}

	subject := firstString(ticket, "subject", "title")
	description := firstString(ticket, "description", "comment")
	if subject == "" && description == "" {
		return nil
	}

	number := firstString(ticket, "id")
	if number == "" {
		number = numberString(ticket["id"])
	}

	header := "Ticket"
	if number != "" {
		header = "Ticket #" + number
	}
	if subject != "" {
		header += ": " + subject
	}
	content := header
	if description != "" {
		content += "\n\n" + description
	}

	metadata := map[string]any{"type": "ticket"}
	if number != "" {
		metadata["ticket_id"] = number
	}
	if priority := firstString(ticket, "priority"); priority != "" {
		metadata["priority"] = priority
	}
	if status := firstString(ticket, "status"); status != "" {
		metadata["status"] = status
	}
	withAuthor(metadata, firstString(childMap(ticket, "requester"), "email", "name"))

	return []Item{{Content: content, Metadata: metadata}}
}
