package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *Config {
	return &Config{
		APIKey:      "test-key",
		APIURL:      url,
		Model:       "test-model",
		MaxTokens:   1000,
		Temperature: 0.7,
		TopP:        0.95,
		Timeout:     30,
	}
}

const okResponse = `{
	"id": "test-id",
	"object": "chat.completion",
	"created": 1234567890,
	"model": "test-model",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "1\n00:00:01,000 --> 00:00:02,000\nBonjour"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
}`

func TestNewClient(t *testing.T) {
	config := testConfig("https://api.example.com")

	client, err := NewClient(config)
	require.NoError(t, err)
	assert.Equal(t, config, client.config)
	assert.NotNil(t, client.httpClient)

	_, err = NewClient(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing key", func(c *Config) { c.APIKey = "" }, "API key"},
		{"missing url", func(c *Config) { c.APIURL = "" }, "API URL"},
		{"missing model", func(c *Config) { c.Model = "" }, "model"},
		{"zero tokens", func(c *Config) { c.MaxTokens = 0 }, "max tokens"},
		{"hot temperature", func(c *Config) { c.Temperature = 2.5 }, "temperature"},
		{"top_p above one", func(c *Config) { c.TopP = 1.5 }, "top_p"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig("https://api.example.com")
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGetHeaders(t *testing.T) {
	c := testConfig("https://api.example.com")
	headers := c.GetHeaders()
	assert.Equal(t, "Bearer test-key", headers["Authorization"])
	assert.NotContains(t, headers, "X-Title")

	c.SiteURL = "https://example.com"
	c.AppName = "srtx"
	headers = c.GetHeaders()
	assert.Equal(t, "https://example.com", headers["HTTP-Referer"])
	assert.Equal(t, "srtx", headers["X-Title"])
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		assert.InDelta(t, 0.95, req.TopP, 1e-9)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "Translate to French", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	// trailing slash on the base URL is tolerated
	client, err := NewClient(testConfig(server.URL + "/"))
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "Translate to French", "1\n00:00:01,000 --> 00:00:02,000\nHello")
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nBonjour", out)
}

func TestCompleteWithoutInstruction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 1)
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), "", "hello")
	require.NoError(t, err)
}

func TestClientErrorHandling(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"api error object", http.StatusUnauthorized, `{"error":{"message":"Invalid API key","type":"invalid_request_error","code":"invalid_api_key"}}`, "Invalid API key"},
		{"plain error body", http.StatusBadGateway, "upstream down", "status 502"},
		{"error in 200 body", http.StatusOK, `{"error":{"message":"quota exceeded","type":"rate_limit"}}`, "quota exceeded"},
		{"invalid json", http.StatusOK, `{"invalid": json}`, "failed to parse response"},
		{"no choices", http.StatusOK, `{"id":"x","choices":[]}`, "no choices"},
		{"content filter", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`, "content filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(testConfig(server.URL))
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "sys", "text")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestClientConcurrentRequests(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	const n = 5
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Complete(context.Background(), "sys", "text")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, n, count)
}
