package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	untitledConversation = "Untitled Conversation"
	conversationSep      = "\n\n---\n\n"
)

type chatGPTConversation struct {
	Title   string          `json:"title"`
	Mapping json.RawMessage `json:"mapping"`
}

type chatGPTNode struct {
	Message *struct {
		Author struct {
			Role string `json:"role"`
		} `json:"author"`
		Content struct {
			Parts []interface{} `json:"parts"`
		} `json:"content"`
	} `json:"message"`
}

// looksLikeChatGPTExport reports whether a file name suggests a ChatGPT
// conversations export.
func looksLikeChatGPTExport(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "conversations.json") || strings.Contains(lower, "chatgpt")
}

// FlattenChatGPTExport renders a ChatGPT conversations.json export as
// markdown: one "## title" section per conversation with "**You:**" and
// "**Assistant:**" lines. Content in any other shape is returned unchanged.
func FlattenChatGPTExport(content string) string {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil || len(raw) == 0 {
		return content
	}
	var first chatGPTConversation
	if err := json.Unmarshal(raw[0], &first); err != nil || !isObject(first.Mapping) {
		return content
	}

	conversations := make([]string, 0, len(raw))
	for _, item := range raw {
		var conv chatGPTConversation
		if err := json.Unmarshal(item, &conv); err != nil || !isObject(conv.Mapping) {
			continue
		}
		nodes, err := orderedValues(conv.Mapping)
		if err != nil {
			continue
		}
		title := conv.Title
		if title == "" {
			title = untitledConversation
		}

		lines := []string{fmt.Sprintf("## %s\n", title)}
		for _, rawNode := range nodes {
			var node chatGPTNode
			if err := json.Unmarshal(rawNode, &node); err != nil || node.Message == nil {
				continue
			}
			role := node.Message.Author.Role
			text := joinParts(node.Message.Content.Parts)
			if text == "" || role == "system" {
				continue
			}
			speaker := "Assistant"
			if role == "user" {
				speaker = "You"
			}
			lines = append(lines, fmt.Sprintf("**%s:** %s\n", speaker, text))
		}
		if len(lines) > 1 {
			conversations = append(conversations, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(conversations, conversationSep)
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// orderedValues returns the values of a JSON object in document order.
func orderedValues(raw json.RawMessage) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func joinParts(parts []interface{}) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s, ok := p.(string); ok {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n")
}
