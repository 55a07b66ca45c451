package client

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"time"

	"parley/internal/logging"
	"parley/internal/types"
)

const streamBufferSize = 256

// Generate opens the conversation's generation stream and returns a
// channel of decoded protocol events plus a cancel func. The channel
// closes when the stream ends or is canceled. Events are delivered in
// arrival order; a malformed frame is logged and skipped without
// terminating the stream.
func (c *Client) Generate(ctx context.Context, id string, req GenerateRequest) (<-chan types.Event, func(), error) {
	req.Stream = true

	ctx, cancel := context.WithCancel(ctx)
	trackID, done := c.track(cancel)

	resp, err := c.openStream(ctx, id, req)
	if err != nil {
		cancel()
		c.untrack(trackID, done)
		return nil, nil, err
	}

	ch := make(chan types.Event, streamBufferSize)
	go func() {
		defer c.untrack(trackID, done)
		defer close(ch)
		defer resp.Body.Close()

		start := time.Now()
		count := 0
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(line[len("data:"):])
			if payload == "" {
				continue
			}
			event, err := DecodeFrame([]byte(payload))
			if err != nil {
				c.log.Warn("skipping malformed frame", logging.F("conversation", id), logging.F("err", err))
				continue
			}
			select {
			case ch <- event:
				count++
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.log.Debug("stream read ended", logging.F("conversation", id), logging.F("err", err))
		}
		c.log.Debug("stream closed",
			logging.F("conversation", id),
			logging.F("events", count),
			logging.F("dur", time.Since(start)))
	}()

	return ch, cancel, nil
}

func (c *Client) openStream(ctx context.Context, id string, req GenerateRequest) (*http.Response, error) {
	httpReq, err := c.newJSONRequest(ctx, http.MethodPost, "/api/conversations/"+id+"/generate", req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	// The streaming client must not carry the default request timeout: a
	// generation can legitimately outlive it.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}
