package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3studio/internal/contract"
)

// ErrNoAuditKey is returned when the deep audit has no credential.
var ErrNoAuditKey = errors.New("no AI service key configured")

// DefaultAuditEndpoint is an OpenAI-compatible chat completions URL.
const DefaultAuditEndpoint = "https://api.openai.com/v1/chat/completions"

// DeepReport is the structured answer of the external reviewer.
type DeepReport struct {
	Score    int       `json:"score"`
	Findings []Finding `json:"findings"`
	Summary  string    `json:"summary"`
}

// DeepAuditor sends full source to an external reasoning service.
type DeepAuditor struct {
	Endpoint string
	APIKey   string
	Model    string
	client   *http.Client
}

// NewDeepAuditor returns a DeepAuditor. Empty endpoint and model take defaults.
func NewDeepAuditor(endpoint, apiKey, model string) *DeepAuditor {
	if endpoint == "" {
		endpoint = DefaultAuditEndpoint
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &DeepAuditor{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Model:    model,
		client:   &http.Client{Timeout: 90 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const auditInstructions = `You review EVM smart contracts. Reply with a JSON object:
{"score": 0-100, "findings": [{"severity": "critical|high|medium|low|info", "category": "...", "title": "...", "description": "...", "remediation": "...", "functions": ["..."]}], "summary": "..."}`

// Audit posts {name, source, abi} and parses the reply.
func (a *DeepAuditor) Audit(ctx context.Context, name, source string, abi []contract.ABIEntry) (*DeepReport, error) {
	if a.APIKey == "" {
		return nil, ErrNoAuditKey
	}
	abiJSON, err := json.Marshal(abi)
	if err != nil {
		return nil, err
	}
	user := fmt.Sprintf("Contract: %s\n\nABI:\n%s\n\nSource:\n%s", name, abiJSON, source)
	body, err := json.Marshal(chatRequest{
		Model: a.Model,
		Messages: []chatMessage{
			{Role: "system", Content: auditInstructions},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audit request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audit response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("audit service returned non-JSON (HTTP %d)", resp.StatusCode)
	}
	if cr.Error != nil {
		return nil, fmt.Errorf("audit service: %s", cr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audit service: HTTP %d", resp.StatusCode)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("audit service returned no completion")
	}
	return parseDeepReport(cr.Choices[0].Message.Content)
}

// parseDeepReport accepts the JSON object bare or inside a ``` fence.
func parseDeepReport(content string) (*DeepReport, error) {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndex(s, "}"); j >= 0 {
		s = s[:j+1]
	}
	var r DeepReport
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("parsing audit report: %w", err)
	}
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	return &r, nil
}
