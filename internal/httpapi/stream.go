package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	contentTypeNDJSON = "application/x-ndjson"
	contentTypeSSE    = "text/event-stream"
)

// recordStream writes one JSON record per event and flushes after each.
type recordStream interface {
	Write(event string, v any) error
}

func wantsSSE(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), contentTypeSSE)
}

func newRecordStream(c *gin.Context) recordStream {
	h := c.Writer.Header()
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	if wantsSSE(c.Request) {
		h.Set("Content-Type", contentTypeSSE)
		h.Set("Connection", "keep-alive")
		c.Status(http.StatusOK)
		return &sseStream{w: c.Writer}
	}
	h.Set("Content-Type", contentTypeNDJSON)
	c.Status(http.StatusOK)
	return &ndjsonStream{w: c.Writer, enc: json.NewEncoder(c.Writer)}
}

type ndjsonStream struct {
	w   gin.ResponseWriter
	enc *json.Encoder
}

func (s *ndjsonStream) Write(_ string, v any) error {
	if err := s.enc.Encode(v); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

type sseStream struct {
	w gin.ResponseWriter
}

func (s *sseStream) Write(event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := writeSSE(s.w, event, string(b)); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func writeSSE(w http.ResponseWriter, event string, data string) error {
	if strings.TrimSpace(event) != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", strings.TrimSpace(event)); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}
