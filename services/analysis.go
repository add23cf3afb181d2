package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"portfolio-tracker/models"
	"portfolio-tracker/observability"
)

// AnalysisFallbackText replaces the analysis whenever the model call fails.
const AnalysisFallbackText = "Sorry, the analysis could not be generated at this time."

// AnalysisSystemPrompt frames the model for portfolio review.
const AnalysisSystemPrompt = `You act as a professional financial analyst. ` +
	`Review the investment portfolio you are given: comment on diversification across sectors and market capitalisations, ` +
	`point out concentration risk, and mention recent news that matters for the largest holdings. ` +
	`Be concise and practical, write plain paragraphs, and do not give personalised investment advice.`

// AnalysisHolding is one position as sent to the model.
type AnalysisHolding struct {
	Ticker       string `json:"ticker"`
	Sector       string `json:"sector"`
	MarketCap    string `json:"marketCap"`
	CurrentValue string `json:"currentValue"`
}

// Holdings projects priced positions onto the prompt payload.
func Holdings(priced []models.PricedPosition) []AnalysisHolding {
	out := make([]AnalysisHolding, 0, len(priced))
	for _, p := range priced {
		out = append(out, AnalysisHolding{
			Ticker:       p.Ticker,
			Sector:       p.Sector,
			MarketCap:    p.MarketCap,
			CurrentValue: p.CurrentValue.StringFixed(2),
		})
	}
	return out
}

// BuildAnalysisPrompt renders the user prompt: the holdings as indented JSON
// followed by any headlines gathered for context.
func BuildAnalysisPrompt(priced []models.PricedPosition, news []models.NewsArticle) (string, error) {
	payload, err := json.MarshalIndent(Holdings(priced), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode holdings: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please analyze this portfolio: ")
	b.Write(payload)

	if len(news) > 0 {
		b.WriteString("\n\nRecent headlines about the largest holdings:\n")
		for _, a := range news {
			b.WriteString("- ")
			b.WriteString(a.Title)
			if a.Source != "" {
				b.WriteString(" (")
				b.WriteString(a.Source)
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderAnalysis packages model output for display. Raw HTML in the text is
// escaped by the markdown renderer.
func RenderAnalysis(provider, text string, fallback bool, at time.Time) models.Analysis {
	return models.Analysis{
		Provider:    provider,
		Text:        text,
		Paragraphs:  Paragraphs(text),
		HTML:        MarkdownToHTML(text),
		Fallback:    fallback,
		GeneratedAt: at,
	}
}

// FallbackAnalysis is the canned answer shown when no model output is available.
func FallbackAnalysis(provider string, at time.Time) models.Analysis {
	return RenderAnalysis(provider, AnalysisFallbackText, true, at)
}

// Paragraphs splits text on newlines and drops blank lines.
func Paragraphs(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// MarkdownToHTML converts GFM to HTML, falling back to escaped paragraphs.
func MarkdownToHTML(text string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		observability.Warn("markdown conversion failed", "error", err)
		var b strings.Builder
		for _, p := range Paragraphs(text) {
			b.WriteString("<p>")
			b.WriteString(htmlEscaper.Replace(p))
			b.WriteString("</p>\n")
		}
		return b.String()
	}
	return buf.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")
