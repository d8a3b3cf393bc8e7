package adapters

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestGitHubIssue(t *testing.T) {
	payload := decode(t, `{
		"action": "opened",
		"issue": {
			"number": 5,
			"title": "Bug",
			"body": "Crash on save",
			"html_url": "https://github.com/acme/app/issues/5",
			"user": {"login": "al"}
		}
	}`)

	items := GitHubAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.True(t, strings.HasPrefix(items[0].Content, "Issue #5: Bug"))
	require.Contains(t, items[0].Content, "Crash on save")
	require.Equal(t, "al", items[0].Metadata["author"])
	require.Equal(t, "issue", items[0].Metadata["type"])
	require.Equal(t, "5", items[0].Metadata["issue_number"])
	require.Equal(t, "opened", items[0].Metadata["action"])
}

func TestGitHubIssueWithComment(t *testing.T) {
	payload := decode(t, `{
		"action": "created",
		"issue": {"number": 12, "title": "Slow export", "user": {"login": "kim"}},
		"comment": {"body": "Same here on 2.3", "user": {"login": "ines"}}
	}`)

	items := GitHubAdapter{}.Adapt(payload)

	require.Len(t, items, 2)
	require.True(t, strings.HasPrefix(items[0].Content, "Issue #12: Slow export"))
	require.True(t, strings.HasPrefix(items[1].Content, "Comment on issue #12: Slow export"))
	require.Contains(t, items[1].Content, "Same here on 2.3")
	require.Equal(t, "ines", items[1].Metadata["author"])
	require.Equal(t, "comment", items[1].Metadata["type"])
}

func TestGitHubCommentWithoutIssue(t *testing.T) {
	payload := decode(t, `{"comment": {"body": "ping", "user": {"login": "al"}}}`)

	items := GitHubAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.True(t, strings.HasPrefix(items[0].Content, "Comment"))
	require.Contains(t, items[0].Content, "ping")
}

func TestDiscordMessage(t *testing.T) {
	payload := decode(t, `{
		"id": "91100",
		"channel_id": "7001",
		"content": "The new dashboard is great",
		"author": {"username": "sana"}
	}`)

	items := DiscordAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.Equal(t, "The new dashboard is great", items[0].Content)
	require.Equal(t, "sana", items[0].Metadata["author"])
	require.Equal(t, "message", items[0].Metadata["type"])
	require.Equal(t, "91100", items[0].Metadata["message_id"])
	require.Equal(t, "7001", items[0].Metadata["channel_id"])
}

func TestTwitterPrefersFullText(t *testing.T) {
	payload := decode(t, `{
		"id_str": "17770001",
		"text": "truncated...",
		"full_text": "@acme the export button vanished after the update",
		"user": {"screen_name": "devon"}
	}`)

	items := TwitterAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.Equal(t, "@acme the export button vanished after the update", items[0].Content)
	require.Equal(t, "devon", items[0].Metadata["author"])
	require.Equal(t, "17770001", items[0].Metadata["tweet_id"])
}

func TestEmailHTMLBody(t *testing.T) {
	payload := decode(t, `{
		"from": "pat@example.com",
		"subject": "Sync keeps failing",
		"html": "<html><body><p>It stops at <b>90%</b> every time.</p><style>p{}</style></body></html>"
	}`)

	items := EmailAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.True(t, strings.HasPrefix(items[0].Content, "Subject: Sync keeps failing"))
	require.Contains(t, items[0].Content, "It stops at 90% every time.")
	require.NotContains(t, items[0].Content, "<b>")
	require.Equal(t, "pat@example.com", items[0].Metadata["author"])
}

func TestEmailPrefersPlainBody(t *testing.T) {
	payload := decode(t, `{
		"sender": "pat@example.com",
		"body": "plain text wins",
		"html": "<p>html loses</p>"
	}`)

	items := EmailAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.Equal(t, "plain text wins", items[0].Content)
	require.Equal(t, "pat@example.com", items[0].Metadata["author"])
}

func TestZendeskTicket(t *testing.T) {
	payload := decode(t, `{
		"ticket": {
			"id": 4821,
			"subject": "Cannot log in",
			"description": "Password reset email never arrives.",
			"priority": "high",
			"status": "open",
			"requester": {"email": "lee@example.com"}
		}
	}`)

	items := ZendeskAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.True(t, strings.HasPrefix(items[0].Content, "Ticket #4821: Cannot log in"))
	require.Contains(t, items[0].Content, "Password reset email never arrives.")
	require.Equal(t, "lee@example.com", items[0].Metadata["author"])
	require.Equal(t, "high", items[0].Metadata["priority"])
	require.Equal(t, "open", items[0].Metadata["status"])
}

func TestDiscoursePost(t *testing.T) {
	payload := decode(t, `{
		"post": {
			"id": 330,
			"topic_id": 52,
			"topic_title": "Feature requests",
			"username": "mira",
			"raw": "Please add dark mode."
		}
	}`)

	items := DiscourseAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.Contains(t, items[0].Content, "Feature requests")
	require.Contains(t, items[0].Content, "Please add dark mode.")
	require.Equal(t, "mira", items[0].Metadata["author"])
	require.Equal(t, "52", items[0].Metadata["topic_id"])
}

func TestGenericAlwaysOneItem(t *testing.T) {
	payloads := []any{
		decode(t, `{"kind": "nps", "score": 9}`),
		decode(t, `["a", "b"]`),
		decode(t, `"just a string"`),
		nil,
	}

	for _, payload := range payloads {
		items := GenericAdapter{}.Adapt(payload)

		require.Len(t, items, 1)
		require.NotEmpty(t, items[0].Content)
		require.Equal(t, true, items[0].Metadata["raw"])
	}
}

func TestGenericContentIsSerializedPayload(t *testing.T) {
	payload := decode(t, `{"score": 9}`)

	items := GenericAdapter{}.Adapt(payload)

	require.Len(t, items, 1)
	require.JSONEq(t, `{"score": 9}`, items[0].Content)
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()

	require.IsType(t, GitHubAdapter{}, registry.Lookup("github"))
	require.IsType(t, GitHubAdapter{}, registry.Lookup("GitHub"))
	require.IsType(t, GitHubAdapter{}, registry.Lookup(" github "))
	require.IsType(t, GenericAdapter{}, registry.Lookup("intercom"))
	require.IsType(t, GenericAdapter{}, registry.Lookup(""))
}

func TestRegistrySources(t *testing.T) {
	sources := NewRegistry().Sources()

	require.Equal(t, []string{"discord", "discourse", "email", "github", "twitter", "zendesk"}, sources)
}

func TestAdaptersTolerateMalformedPayloads(t *testing.T) {
	adapters := []Adapter{
		GitHubAdapter{},
		DiscordAdapter{},
		TwitterAdapter{},
		EmailAdapter{},
		ZendeskAdapter{},
		DiscourseAdapter{},
	}
	payloads := []any{
		nil,
		"not an object",
		float64(42),
		decode(t, `{}`),
		decode(t, `{"issue": "not an object", "post": 1, "ticket": []}`),
	}

	for _, a := range adapters {
		for _, payload := range payloads {
			require.Empty(t, a.Adapt(payload), "adapter %s", a.Source())
		}
	}
}
