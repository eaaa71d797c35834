// Package relay decodes an upstream chat-completions SSE stream and re-emits
// the assistant text deltas as a plain incremental byte stream.
package relay

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// ErrStreamInterrupted is the opaque error reported when the upstream read
// fails mid-stream, including when the idle watchdog fires.
var ErrStreamInterrupted = errors.New("streaming error")

type Relay struct {
	idleTimeout time.Duration
}

// New creates a relay. A positive idleTimeout bounds how long the copy loop
// may wait between upstream lines before the stream is torn down.
func New(idleTimeout time.Duration) *Relay {
	return &Relay{idleTimeout: idleTimeout}
}

// Copy reads SSE lines from src until the terminal sentinel, EOF, or an
// error, writing each non-empty delta to dst immediately. dst is flushed per
// delta when it supports flushing. src is always closed. A nil return means
// the stream terminated cleanly (sentinel or EOF); a trailing fragment with
// no line terminator is dropped. The idle timer resets only on complete
// lines, so an upstream that trickles bytes without ever finishing a line is
// still torn down as idle.
func (r *Relay) Copy(dst io.Writer, src io.ReadCloser) error {
	defer src.Close()

	var watchdog *time.Timer
	if r.idleTimeout > 0 {
		// Closing the body is the only way to unblock the pending read.
		watchdog = time.AfterFunc(r.idleTimeout, func() { src.Close() })
		defer watchdog.Stop()
	}

	flusher, _ := dst.(http.Flusher)
	reader := bufio.NewReader(src)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return ErrStreamInterrupted
		}
		if watchdog != nil {
			watchdog.Reset(r.idleTimeout)
		}

		done, err := relayLine(dst, flusher, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func relayLine(dst io.Writer, flusher http.Flusher, line string) (done bool, err error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return false, nil
	}

	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, dataPrefix))
	if payload == doneSentinel {
		return true, nil
	}

	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// Malformed events are skipped, not fatal.
		return false, nil
	}
	if len(chunk.Choices) == 0 {
		return false, nil
	}

	delta := chunk.Choices[0].Delta.Content
	if delta == "" {
		return false, nil
	}

	if _, err := io.WriteString(dst, delta); err != nil {
		return false, err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return false, nil
}
