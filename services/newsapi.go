package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIService fetches recent headlines from NewsAPI.org.
type NewsAPIService struct {
	apiKey string
	rest   *restClient
}

func NewNewsAPIService(apiKey string, opts ...ClientOption) *NewsAPIService {
	return &NewsAPIService{
		apiKey: apiKey,
		rest:   newRESTClient(BreakerNewsAPI, newsAPIBaseURL, opts...),
	}
}

// NewsAPIResponse represents the response from NewsAPI
type NewsAPIResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// GetHeadlines returns the newest English articles matching query.
// limit is clamped to 1..100.
func (s *NewsAPIService) GetHeadlines(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(limit))

	header := http.Header{}
	header.Set("X-Api-Key", s.apiKey)

	var resp NewsAPIResponse
	if err := s.rest.getJSON(ctx, "get_headlines", "/everything", params, header, &resp); err != nil {
		return nil, fmt.Errorf("newsapi headlines: %w", err)
	}

	articles := make([]models.NewsArticle, 0, len(resp.Articles))
	for _, item := range resp.Articles {
		publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
		if err != nil {
			observability.Debug("unparseable news timestamp", "value", item.PublishedAt)
			publishedAt = time.Time{}
		}

		articles = append(articles, models.NewsArticle{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.URL,
			Source:      item.Source.Name,
			Author:      item.Author,
			PublishedAt: publishedAt,
		})
	}
	return articles, nil
}
