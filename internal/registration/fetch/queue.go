package fetch

import (
	"context"
	"net/http"
	"sync"
)

// Queue is a Fetcher test double that serves canned responses in the order
// they were queued. It records every requested URL.
type Queue struct {
	mu        sync.Mutex
	responses []*Response
	errs      []error
	Requested []string
}

// NewQueue constructs an empty response queue.
func NewQueue() *Queue {
	return &Queue{}
}

// QueueResponse appends a canned response served by the next unmatched Get.
func (q *Queue) QueueResponse(status int, header http.Header, body string) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()
	if header == nil {
		header = http.Header{}
	}
	q.responses = append(q.responses, &Response{
		StatusCode: status,
		Header:     header,
		Body:       []byte(body),
	})
	q.errs = append(q.errs, nil)
	return q
}

// QueueError appends a transport-level failure.
func (q *Queue) QueueError(err error) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.responses = append(q.responses, nil)
	q.errs = append(q.errs, err)
	return q
}

func (q *Queue) Get(_ context.Context, url string) (*Response, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.Requested = append(q.Requested, url)
	if len(q.responses) == 0 {
		return nil, &UnexpectedRequestError{URL: url}
	}

	resp, err := q.responses[0], q.errs[0]
	q.responses = q.responses[1:]
	q.errs = q.errs[1:]
	if err != nil {
		return nil, err
	}
	if resp.URL == "" {
		resp.URL = url
	}
	return resp, nil
}

// UnexpectedRequestError reports a Get with no queued response left.
type UnexpectedRequestError struct {
	URL string
}

func (e *UnexpectedRequestError) Error() string {
	return "no queued response for request to " + e.URL
}
