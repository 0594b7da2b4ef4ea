package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PodJamz/8gent-sub005/llm"
)

func TestOllamaClient_SynchronousJSONMode(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"{\"ok\":true}"},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":4}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewOllamaClient(srv.URL, "llama3")
	require.NoError(t, err)

	resp, err := c.Synchronous(context.Background(), &llm.Request{
		System:   "extract",
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hello")},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text())
	assert.EqualValues(t, 12, resp.Usage.InputTokens)
	assert.EqualValues(t, 4, resp.Usage.OutputTokens)
	assert.Equal(t, "json", got["format"])

	msgs, _ := got["messages"].([]interface{})
	require.Len(t, msgs, 2)
	first, _ := msgs[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
}

func TestOllamaClient_RequiresModel(t *testing.T) {
	c, err := NewOllamaClient("localhost:11434", "")
	require.NoError(t, err)
	_, err = c.Synchronous(context.Background(), &llm.Request{})
	assert.Error(t, err)
}

func TestParseHost(t *testing.T) {
	u, err := parseHost("localhost:11434")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", u.String())
}
