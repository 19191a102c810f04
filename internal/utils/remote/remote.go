// Package remote issues JSON calls to sibling services with fiber's client.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Response is a raw reply. Transport failures never produce one.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Request describes one call.
type Request struct {
	Method  string
	URL     string
	Body    interface{}
	Headers map[string]string
	Timeout time.Duration
}

// Do sends req. The effective timeout is the smaller of req.Timeout and the
// time left on ctx; a cancelled ctx fails before anything is sent. Once sent,
// the call is not interrupted by ctx.
func Do(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := req.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, context.DeadlineExceeded
		}
		if timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	var agent *fiber.Agent
	switch req.Method {
	case fiber.MethodGet:
		agent = fiber.Get(req.URL)
	case fiber.MethodPatch:
		agent = fiber.Patch(req.URL)
	default:
		agent = fiber.Post(req.URL)
	}
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	for k, v := range req.Headers {
		agent.Set(k, v)
	}
	if req.Body != nil {
		agent.JSON(req.Body)
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, errors.Join(errs...))
	}
	return &Response{Status: status, Body: body}, nil
}
