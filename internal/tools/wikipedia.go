package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultWikipediaAPIURL = "https://en.wikipedia.org/w/api.php"

// WikipediaTool searches Wikipedia and returns the summary of the best match
type WikipediaTool struct {
	apiURL     string
	httpClient *http.Client
}

// NewWikipediaTool creates a new Wikipedia search tool. An empty apiURL uses
// the English Wikipedia endpoint.
func NewWikipediaTool(apiURL string) *WikipediaTool {
	if apiURL == "" {
		apiURL = defaultWikipediaAPIURL
	}
	return &WikipediaTool{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *WikipediaTool) Name() string {
	return "wikipedia_search"
}

func (t *WikipediaTool) Description() string {
	return "Search Wikipedia for information about a topic"
}

func (t *WikipediaTool) Parameters() map[string]string {
	return map[string]string{
		"query": "The Wikipedia search query",
	}
}

func (t *WikipediaTool) Execute(ctx context.Context, params map[string]string) Result {
	query := params["query"]
	if query == "" {
		return Result{Success: false, Error: "No query provided"}
	}

	title, err := t.searchTitle(ctx, query)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("Wikipedia search failed: %v", err)}
	}
	if title == "" {
		return Result{Success: true, Data: "No Wikipedia articles found for the query."}
	}

	summary, err := t.fetchSummary(ctx, title)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("Wikipedia search failed: %v", err)}
	}

	if len(summary) > 500 {
		summary = summary[:500] + "..."
	}

	return Result{Success: true, Data: fmt.Sprintf("Title: %s\nSummary: %s", title, summary)}
}

// searchTitle runs an opensearch query and returns the first matching title,
// or "" when nothing matched.
func (t *WikipediaTool) searchTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", "1")
	params.Set("format", "json")

	body, err := t.get(ctx, params)
	if err != nil {
		return "", err
	}

	// Opensearch responses are a positional array: [query, titles, descriptions, urls]
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(raw) < 2 {
		return "", fmt.Errorf("unexpected response shape")
	}

	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return "", fmt.Errorf("failed to parse titles: %w", err)
	}
	if len(titles) == 0 {
		return "", nil
	}
	return titles[0], nil
}

func (t *WikipediaTool) fetchSummary(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("titles", title)
	params.Set("format", "json")

	body, err := t.get(ctx, params)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	for _, page := range parsed.Query.Pages {
		if page.Extract != "" {
			return page.Extract, nil
		}
	}
	return "", fmt.Errorf("no extract found for %q", title)
}

func (t *WikipediaTool) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

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

	return body, nil
}
