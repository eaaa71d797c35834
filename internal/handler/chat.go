package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/habibullah-1101/habib-portfolio/internal/model"
	"github.com/habibullah-1101/habib-portfolio/internal/ratelimit"
	"github.com/habibullah-1101/habib-portfolio/internal/relay"
	"github.com/habibullah-1101/habib-portfolio/internal/upstream"
	"github.com/habibullah-1101/habib-portfolio/pkg/logger"
)

type ChatHandler struct {
	upstream   *upstream.Client
	limiter    *ratelimit.Limiter
	relay      *relay.Relay
	maxHistory int
}

func NewChatHandler(client *upstream.Client, limiter *ratelimit.Limiter, r *relay.Relay, maxHistory int) *ChatHandler {
	if maxHistory <= 0 {
		maxHistory = model.DefaultMaxHistoryMessages
	}
	return &ChatHandler{
		upstream:   client,
		limiter:    limiter,
		relay:      r,
		maxHistory: maxHistory,
	}
}

// Chat validates a conversation payload, gates it on the rate limiter, and
// relays the upstream completion stream back as chunked plain text.
func (h *ChatHandler) Chat(c *gin.Context) {
	if !h.upstream.HasCredential() {
		c.String(http.StatusInternalServerError, "%s", upstream.ErrMissingAPIKey.Error())
		return
	}

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}

	if strings.TrimSpace(req.SessionID) == "" {
		c.String(http.StatusBadRequest, "sessionId is required")
		return
	}

	messages := model.SanitizeMessages(req.Messages, h.maxHistory)
	if len(messages) == 0 {
		c.String(http.StatusBadRequest, "messages are required")
		return
	}

	key := ratelimit.Key(req.SessionID, clientIP(c))
	if !h.limiter.Allow(key) {
		c.String(http.StatusTooManyRequests, "Rate limit exceeded. Please wait a minute.")
		return
	}

	body, err := h.upstream.StreamCompletion(c.Request.Context(), messages)
	if err != nil {
		var upErr *upstream.Error
		switch {
		case errors.Is(err, upstream.ErrMissingAPIKey):
			c.String(http.StatusInternalServerError, "%s", err.Error())
		case errors.As(err, &upErr):
			c.String(upErr.Status, "%s", upErr.Body)
		default:
			logger.Errorf("upstream request failed: %v", err)
			c.String(http.StatusInternalServerError, "Upstream request failed")
		}
		return
	}

	writeStreamingHeaders(c)
	if err := h.relay.Copy(c.Writer, body); err != nil {
		logger.Warnf("chat stream interrupted: %v", err)
		abortStream(c)
	}
}

// abortStream closes the client connection without the terminating chunk so a
// truncated reply reads as an error, not as a short but complete response.
func abortStream(c *gin.Context) {
	conn, _, err := c.Writer.Hijack()
	if err != nil {
		logger.Warnf("abort chat stream: %v", err)
		return
	}
	conn.Close()
}

func writeStreamingHeaders(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

// clientIP prefers the first X-Forwarded-For hop so rate limiting keys on the
// end client when the service sits behind the site's reverse proxy.
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}
