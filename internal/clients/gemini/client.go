// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/models"
)

const DefaultModel = "gemini-2.0-flash"

// Client implements the ExpenseParser and InsightGenerator interfaces
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// generate runs a prompt through the model and returns the raw text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// parsedExpenseWire is the JSON shape the model is asked to produce.
type parsedExpenseWire struct {
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	CategoryID    string  `json:"category_id"`
	MoneySourceID string  `json:"money_source_id"`
	Notes         string  `json:"notes"`
}

// ParseExpense turns free-form expense text into a structured expense,
// constrained to the caller's categories and money sources.
func (c *Client) ParseExpense(ctx context.Context, text string, categories []*models.Category, sources []*models.MoneySource) (*models.ParsedExpense, error) {
	prompt := buildParsePrompt(text, categories, sources)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var wire parsedExpenseWire
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}

	if wire.Amount <= 0 {
		return nil, fmt.Errorf("model did not extract a positive amount")
	}

	date := time.Now().UTC()
	if wire.Date != "" {
		if d, err := time.Parse("2006-01-02", wire.Date); err == nil {
			date = d
		}
	}

	return &models.ParsedExpense{
		Amount:        wire.Amount,
		Date:          date,
		CategoryID:    wire.CategoryID,
		MoneySourceID: wire.MoneySourceID,
		Notes:         wire.Notes,
	}, nil
}

// buildParsePrompt creates the extraction prompt for free-form expense text.
func buildParsePrompt(text string, categories []*models.Category, sources []*models.MoneySource) string {
	var sb strings.Builder
	sb.WriteString("Extract a single expense from the text below.\n\n")

	sb.WriteString("Available categories (id: name):\n")
	for _, cat := range categories {
		fmt.Fprintf(&sb, "- %s: %s\n", cat.ID, cat.Name)
	}

	sb.WriteString("\nAvailable money sources (id: name, currency):\n")
	for _, src := range sources {
		fmt.Fprintf(&sb, "- %s: %s, %s\n", src.ID, src.Name, src.Currency)
	}

	fmt.Fprintf(&sb, `
Today's date is %s.

Respond with ONLY a JSON object, no prose and no code fence:
{"amount": <positive number>, "date": "<YYYY-MM-DD>", "category_id": "<id from the list>", "money_source_id": "<id from the list>", "notes": "<short description>"}

Pick the best-matching category and money source from the lists. If no money
source is mentioned, pick the first one. If no date is mentioned, use today.

Text: %s
`, time.Now().UTC().Format("2006-01-02"), text)

	return sb.String()
}

// GenerateInsight produces a short natural-language reading of a
// benchmarking report.
func (c *Client) GenerateInsight(ctx context.Context, report *models.BenchmarkReport) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	prompt := fmt.Sprintf(`You are a personal-finance assistant. Given this anonymized
peer-spending comparison (amounts in %s), write 2-3 sentences of plain,
encouraging insight for the user. No markdown, no headings.

%s`, report.Currency, string(data))

	return c.generate(ctx, prompt)
}
