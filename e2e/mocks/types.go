package mocks

// ValidAPIKey is the only key the mock accepts; anything else gets a 401.
const ValidAPIKey = "e2e-key"

// FMPQuote is one row of the FMP quote endpoints. EPS is omitted from
// quote-short responses.
type FMPQuote struct {
	Symbol string   `json:"symbol"`
	Name   string   `json:"name,omitempty"`
	Price  float64  `json:"price"`
	Volume int64    `json:"volume,omitempty"`
	EPS    *float64 `json:"eps,omitempty"`
}

// NewsArticle represents a news article from NewsAPI.
type NewsArticle struct {
	Source      map[string]string `json:"source"`
	Author      string            `json:"author"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	PublishedAt string            `json:"publishedAt"`
}

type newsResponse struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"totalResults"`
	Articles     []NewsArticle `json:"articles"`
}

// chatCompletion is the subset of an OpenAI chat completion the client reads.
type chatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
