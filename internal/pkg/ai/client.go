package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qs3c/ats_resume_server/config"
)

// Client 调用外部 AI 改写服务
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *config.AIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewRewriter 配置了服务地址时使用外部服务，否则使用本地规则
func NewRewriter(cfg *config.AIConfig) Rewriter {
	if cfg == nil || cfg.BaseURL == "" {
		return NewLocalRewriter()
	}
	return NewClient(cfg)
}

type suggestRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description,omitempty"`
}

type suggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type coverLetterRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description,omitempty"`
	CompanyName    string `json:"company_name,omitempty"`
}

type coverLetterResponse struct {
	CoverLetter string `json:"cover_letter"`
}

func (c *Client) Suggest(ctx context.Context, resumeText, jobDescription string) ([]Suggestion, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, ErrEmptyResume
	}
	var out suggestResponse
	if err := c.post(ctx, "/v1/suggestions", suggestRequest{ResumeText: resumeText, JobDescription: jobDescription}, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

func (c *Client) CoverLetter(ctx context.Context, resumeText, jobDescription, companyName string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", ErrEmptyResume
	}
	var out coverLetterResponse
	req := coverLetterRequest{ResumeText: resumeText, JobDescription: jobDescription, CompanyName: companyName}
	if err := c.post(ctx, "/v1/cover-letter", req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.CoverLetter) == "" {
		return "", fmt.Errorf("ai service returned empty cover letter")
	}
	return out.CoverLetter, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post ai service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ai service status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
