// Package planner translates natural-language instructions into shell
// command plans through the Gemini generateContent API.
//
// The client is deliberately forgiving: a missing API key, a transport
// failure, or unparsable model output all degrade to a safe placeholder
// command instead of surfacing an error to the chat session.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/shell"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// planArrayRe locates the JSON command array inside a model response that
// may carry surrounding prose or fences.
var planArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// Config holds the Gemini client settings.
type Config struct {
	// APIKey authenticates against the API. Empty disables remote calls;
	// every request then resolves to the placeholder command.
	APIKey string

	// Model is the Gemini model ID. Defaults to DefaultModel.
	Model string

	// BaseURL overrides the API endpoint root, mainly for tests.
	BaseURL string

	// Timeout bounds a single API call. Defaults to 30s.
	Timeout time.Duration
}

// Client calls Gemini and post-processes its output into commands.
type Client struct {
	cfg        Config
	profile    shell.OSProfile
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a planner for the given OS profile. The profile
// selects the prompt dialect (bash vs PowerShell) and the fallback text.
func NewClient(cfg Config, profile shell.OSProfile, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		profile: profile,
		// Per-call deadlines come from the context; the transport only
		// guards connection setup.
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     120 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger.With("component", "planner", "model", cfg.Model),
	}
}

// Fallback is the safe placeholder command for a platform family. It
// explicitly signals that no command could be determined.
func Fallback(family shell.Family) string {
	if family == shell.FamilyWindows {
		return "Write-Output 'Unable to determine a command'"
	}
	return "echo 'Unable to determine a command'"
}

// ---------- Public API ----------

// Command converts an instruction into exactly one shell command for the
// client's platform. Never fails; the placeholder stands in whenever the
// model cannot produce a usable command.
func (c *Client) Command(ctx context.Context, instruction string) string {
	text, err := c.generateText(ctx, c.commandPrompt(instruction))
	if err != nil {
		c.logger.Warn("command generation failed", "error", err)
		text = ""
	}
	if cmd := extractCommand(text); cmd != "" {
		return cmd
	}
	return Fallback(c.profile.Family)
}

// Plan converts an instruction into an ordered list of at most maxSteps
// commands. Unparsable output degrades to a single-command plan; the
// result is never empty.
func (c *Client) Plan(ctx context.Context, instruction string, maxSteps int) ([]string, error) {
	if maxSteps < 1 {
		maxSteps = 1
	}

	text, err := c.generateText(ctx, c.planPrompt(instruction, maxSteps))
	if err != nil {
		c.logger.Warn("plan generation failed", "error", err)
		text = ""
	}

	if blob := planArrayRe.FindString(text); blob != "" {
		var steps []string
		if err := json.Unmarshal([]byte(blob), &steps); err == nil && len(steps) > 0 {
			if len(steps) > maxSteps {
				steps = steps[:maxSteps]
			}
			return steps, nil
		}
	}

	return []string{c.Command(ctx, instruction)}, nil
}

// ---------- Prompts ----------

func (c *Client) commandPrompt(instruction string) string {
	system := "You are a command generator. Convert the user's request into exactly one shell command. " +
		"Prefer safe, read-only commands when ambiguous."

	var dialect string
	if c.profile.Windows() {
		dialect = "Generate ONE Windows PowerShell command (not CMD). Use PowerShell cmdlets like " +
			"Get-ChildItem, Select-String, Write-Output, etc. Avoid Linux utilities. " +
			"Do not include code fences, comments, or explanations."
	} else {
		dialect = "Generate ONE bash command for Linux/macOS. Prefer POSIX tools (ls, grep, sed, awk). " +
			"Do not include code fences, comments, or explanations."
	}

	return fmt.Sprintf("%s\n%s\nUser: %s\nCommand:", system, dialect, instruction)
}

func (c *Client) planPrompt(instruction string, maxSteps int) string {
	system := "You are a planner that converts the user's instruction into a short, safe, ordered list " +
		"of shell commands. Output STRICTLY a JSON array of strings, each a single command. " +
		"No comments or explanations."
	safety := "Prefer safe, read-only commands where possible. " +
		"Do not use destructive commands unless explicitly requested."

	hint := "bash (Linux/macOS)"
	if c.profile.Windows() {
		hint = "Windows PowerShell"
	}

	return fmt.Sprintf("%s\nShell: %s. Limit to %d steps. %s\nUser: %s\nCommands (JSON array only):",
		system, hint, maxSteps, safety, instruction)
}

// ---------- Transport ----------

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generateText performs one generateContent call and returns the text of
// the first candidate. An empty API key short-circuits to empty text.
func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload := generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("planner: encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("planner: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("planner: calling gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("planner: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return "", fmt.Errorf("planner: gemini returned status %d: %s", resp.StatusCode, snippet)
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("planner: decoding response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// extractCommand reduces raw model output to a single command line:
// fences and surrounding backticks are stripped, then the first non-empty
// line wins.
func extractCommand(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.Trim(text, "`")
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "`"))
		if line != "" {
			return line
		}
	}
	return ""
}
