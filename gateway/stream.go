package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// progressEvery controls how often a textual progress message is emitted
// during streaming, counted in received chunks.
const progressEvery = 25

// streamScanBuffer sizes the line scanner for SSE events. Single chunks are
// small but some services batch deltas into large events.
const streamScanBuffer = 1024 * 1024

// streamDelta is one server-sent chunk in OpenAI-compatible streaming.
type streamDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GenerateStream implements Gateway. It delivers chunks as they arrive and
// returns the accumulated text once the stream completes. Streaming requests
// are not retried; a broken stream surfaces as a transient error.
func (c *Client) GenerateStream(ctx context.Context, system, prompt string, onChunk ChunkFunc, onProgress ProgressFunc) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(c.buildRequest(messages, true))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL(), bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
		return "", classifyHTTPError(httpResp.StatusCode, respBody)
	}

	if onProgress != nil {
		onProgress("generation started")
	}

	var combined strings.Builder
	chunks := 0

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), streamScanBuffer)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var delta streamDelta
		if err := json.Unmarshal([]byte(payload), &delta); err != nil {
			c.logger.Debug("Skipping malformed stream event", "error", err)
			continue
		}
		if len(delta.Choices) == 0 {
			continue
		}

		content := delta.Choices[0].Delta.Content
		if content != "" {
			combined.WriteString(content)
			chunks++
			if onChunk != nil {
				onChunk(content)
			}
			if onProgress != nil && chunks%progressEvery == 0 {
				onProgress(fmt.Sprintf("generation in progress: %d chunks received", chunks))
			}
		}

		if delta.Choices[0].FinishReason != "" {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return "", NewTransientError(fmt.Errorf("read stream: %w", err))
	}

	if onProgress != nil {
		onProgress(fmt.Sprintf("generation complete: %d chunks", chunks))
	}

	return combined.String(), nil
}
