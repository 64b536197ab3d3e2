// Package agent runs the schema-constrained tool-calling loop around the
// language model. The loop is an explicit state machine with hard budgets:
// each iteration either dispatches requested tool calls or tries to accept
// a final answer; malformed finals get a bounded number of correction
// rounds before the session fails.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/toolset"
)

// Config bounds the loop.
type Config struct {
	MaxToolCalls int // total tool invocations before the model must finalize
	MaxRetries   int // correction rounds for malformed final output
}

type Agent struct {
	client *Client
	tools  *toolset.Toolset
	cfg    Config
	logger *slog.Logger
}

func New(client *Client, tools *toolset.Toolset, cfg Config, logger *slog.Logger) *Agent {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = 16
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{client: client, tools: tools, cfg: cfg, logger: logger}
}

// Run drives the loop to completion and returns the validated final JSON.
// Tool-level errors (bad page index, unknown tool) flow back to the model
// as tool-error messages; environment errors (OCR unavailable, timeouts)
// abort the session.
func (a *Agent) Run(ctx context.Context, task string, numPages int) (json.RawMessage, error) {
	start := time.Now()
	msgs := []ChatMessage{
		{Role: "system", Content: BuildSystemPrompt(numPages)},
		{Role: "system", Content: BuildSchemaMessage()},
		{Role: "user", Content: BuildUserPrompt(task)},
	}
	specs := a.tools.Specs()

	toolCalls := 0
	retries := 0
	var lastRaw []byte

	a.logger.Info("agent.loop.start", "max_tool_calls", a.cfg.MaxToolCalls, "max_retries", a.cfg.MaxRetries)

	for {
		// Reasoning: once the tool budget is spent the model no longer sees
		// tools, which forces it into Finalizing.
		var offered []map[string]any
		if toolCalls < a.cfg.MaxToolCalls {
			offered = specs
		}
		msg, err := a.client.Chat(ctx, msgs, offered)
		if err != nil {
			return nil, err
		}

		if len(msg.ToolCalls) > 0 {
			// ToolExecuting: run each requested call, append its result, and
			// hand the context back to the model.
			msgs = append(msgs, msg)
			for _, tc := range msg.ToolCalls {
				result, err := a.tools.Dispatch(ctx, tc.Function.Name, json.RawMessage(tc.Function.Arguments))
				if err != nil {
					if isFatal(err) {
						return nil, err
					}
					result = "ERROR: " + err.Error()
					a.logger.Warn("agent.tool.error", "tool", tc.Function.Name, "error", err)
				} else {
					a.logger.Info("agent.tool.ok", "tool", tc.Function.Name, "result_bytes", len(result))
				}
				msgs = append(msgs, ChatMessage{
					Role:       "tool",
					Content:    result,
					ToolCallID: tc.ID,
				})
				toolCalls++
			}
			if toolCalls >= a.cfg.MaxToolCalls {
				msgs = append(msgs, ChatMessage{
					Role:    "user",
					Content: "Tool budget exhausted. Emit the final JSON object now using what you have read.",
				})
			}
			continue
		}

		// Finalizing: accept the answer only if it validates.
		raw := []byte(ExtractJSON(msg.Content))
		lastRaw = raw
		if err := invoice.ValidateRaw(raw); err != nil {
			retries++
			a.logger.Warn("agent.final.invalid", "attempt", retries, "error", err)
			if retries > a.cfg.MaxRetries {
				return lastRaw, common.NewAppError("EXTRACTION_FAILED",
					fmt.Sprintf("model output failed validation after %d attempts; last output: %s",
						retries, truncate(string(lastRaw), 2048)),
					common.ErrExtractionFailed)
			}
			msgs = append(msgs, msg, ChatMessage{
				Role: "user",
				Content: "Your previous output was not valid against the schema: " + err.Error() +
					". Return ONLY a corrected JSON object with all nine fields. No markdown, no commentary.",
			})
			continue
		}

		a.logger.Info("agent.loop.ok",
			"tool_calls", toolCalls,
			"retries", retries,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return raw, nil
	}
}

// isFatal separates environment failures from tool-level errors the model
// can recover from by adjusting its next action.
func isFatal(err error) bool {
	return errors.Is(err, common.ErrOCRUnavailable) ||
		errors.Is(err, common.ErrTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

var reJSONFence = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON strips ```json ... ``` fences when the model ignores the
// no-markdown instruction.
func ExtractJSON(text string) string {
	if m := reJSONFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
