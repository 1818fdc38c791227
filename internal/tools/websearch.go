package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebSearchTool implements web search using the Tavily API
type WebSearchTool struct {
	apiKey     string
	apiURL     string
	maxResults int
	httpClient *http.Client
}

// TavilyRequest represents a request to Tavily API
type TavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth,omitempty"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

// TavilyResponse represents a response from Tavily API
type TavilyResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []TavilyResult `json:"results"`
}

// TavilyResult represents a single search result
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// NewWebSearchTool creates a new web search tool
func NewWebSearchTool(apiKey, apiURL string) *WebSearchTool {
	if apiURL == "" {
		apiURL = "https://api.tavily.com/search"
	}
	return &WebSearchTool{
		apiKey:     apiKey,
		apiURL:     apiURL,
		maxResults: 3,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return "Search the web for information about a topic"
}

func (t *WebSearchTool) Parameters() map[string]string {
	return map[string]string{
		"query": "The search query to look up",
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, params map[string]string) Result {
	query := params["query"]
	if query == "" {
		return Result{Success: false, Error: "No query provided"}
	}

	resp, err := t.search(ctx, query)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("Web search failed: %v", err)}
	}

	return Result{Success: true, Data: t.formatResults(resp)}
}

func (t *WebSearchTool) search(ctx context.Context, query string) (*TavilyResponse, error) {
	request := TavilyRequest{
		APIKey:        t.apiKey,
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
		MaxResults:    t.maxResults,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tavilyResp TavilyResponse
	if err := json.Unmarshal(body, &tavilyResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &tavilyResp, nil
}

func (t *WebSearchTool) formatResults(resp *TavilyResponse) string {
	var result bytes.Buffer

	if resp.Answer != "" {
		result.WriteString(fmt.Sprintf("Summary: %s\n\n", resp.Answer))
	}

	if len(resp.Results) == 0 {
		result.WriteString("No results found.")
		return result.String()
	}

	results := resp.Results
	if len(results) > t.maxResults {
		results = results[:t.maxResults]
	}

	result.WriteString("Search Results:")
	for i, r := range results {
		result.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, r.Title))
		result.WriteString(fmt.Sprintf("   URL: %s\n", r.URL))
		content := r.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		result.WriteString(fmt.Sprintf("   Summary: %s\n", content))
	}

	return result.String()
}
