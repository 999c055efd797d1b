package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
)

// Summary is the model's take on one bill.
type Summary struct {
	Text string `json:"resumo"`
	// Relevance is a 0-10 public-interest score.
	Relevance int `json:"relevancia"`
}

// Config configures the summarizer.
type Config struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// Summarizer turns a bill's official abstract into a plain-language
// summary with a relevance score.
type Summarizer struct {
	client Client
	cfg    Config
	retry  resilience.RetryConfig
}

func NewSummarizer(client Client, cfg Config) *Summarizer {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("insight", "create_message")
	return &Summarizer{client: client, cfg: cfg, retry: retry}
}

const systemPrompt = `Você é um analista legislativo. Receberá a ementa de uma proposição da Câmara dos Deputados.
Responda APENAS com JSON no formato {"resumo": "...", "relevancia": N} onde resumo é uma explicação
em linguagem simples (máximo 2 frases) e relevancia é um inteiro de 0 a 10 indicando o interesse público.`

// SummarizeBill asks the model for a summary of one bill.
func (s *Summarizer) SummarizeBill(ctx context.Context, bill *model.Bill) (*Summary, error) {
	if strings.TrimSpace(bill.Summary) == "" {
		return nil, eris.Errorf("insight: bill %d has no abstract to summarize", bill.ExternalID)
	}

	prompt := fmt.Sprintf("%s %d/%d\n\nEmenta: %s", bill.Type, bill.Number, bill.Year, bill.Summary)
	req := MessageRequest{
		Model:     s.cfg.Model,
		MaxTokens: s.cfg.MaxTokens,
		System:    systemPrompt,
		Messages:  []Message{{Role: "user", Content: prompt}},
	}
	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*MessageResponse, error) {
		return s.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "insight: summarize bill %d", bill.ExternalID)
	}
	resp.Usage.LogCost(s.cfg.Model)

	summary := parseSummary(resp.Text)
	if summary.Text == "" {
		return nil, eris.Errorf("insight: empty summary for bill %d", bill.ExternalID)
	}
	return summary, nil
}

// parseSummary extracts the JSON payload from a model reply, tolerating
// code fences and leading prose. An unparseable reply degrades to the
// raw text with zero relevance rather than failing the bill.
func parseSummary(text string) *Summary {
	cleaned := strings.TrimSpace(text)
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			var s Summary
			if err := json.Unmarshal([]byte(cleaned[start:end+1]), &s); err == nil {
				s.Text = strings.TrimSpace(s.Text)
				if s.Relevance < 0 {
					s.Relevance = 0
				}
				if s.Relevance > 10 {
					s.Relevance = 10
				}
				return &s
			}
		}
	}

	zap.L().Warn("insight: model reply was not valid JSON, using raw text")
	cleaned = strings.Trim(cleaned, "`")
	return &Summary{Text: cleaned}
}
