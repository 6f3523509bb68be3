package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletionResponse(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient("", Config{BaseURL: "http://localhost"})
	assert.Error(t, err)

	_, err = NewOpenAIClient("gpt-4o-mini", Config{})
	assert.Error(t, err)

	client, err := NewOpenAIClient("gpt-4o-mini", Config{BaseURL: "http://localhost/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", client.Model())
}

func TestGenerateSendsChatRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionResponse("generated text")))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("gpt-4o-mini", Config{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), Request{
		Instructions: "You are a medical writer.",
		Input:        "Compose the synopsis.",
	})
	require.NoError(t, err)
	assert.Equal(t, "generated text", out)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "You are a medical writer.", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
}

func TestGenerateAppendsReference(t *testing.T) {
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(chatCompletionResponse("ok")))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("m", Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{
		Instructions: "i",
		Input:        "document text",
		Reference:    "sample csr",
	})
	require.NoError(t, err)
	assert.Contains(t, gotBody.Messages[1].Content, "document text")
	assert.Contains(t, gotBody.Messages[1].Content, "sample csr")
}

func TestGenerateAPIError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTemporary bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream says no", tt.status)
			}))
			defer server.Close()

			client, err := NewOpenAIClient("m", Config{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), Request{Instructions: "i", Input: "x"})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantTemporary, IsTemporary(err))
		})
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("m", Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{Instructions: "i", Input: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerateRequiresContent(t *testing.T) {
	client, err := NewOpenAIClient("m", Config{BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{})
	require.Error(t, err)
}

func TestGenerateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(chatCompletionResponse("too late")))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("m", Config{BaseURL: server.URL, Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{Instructions: "i", Input: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
