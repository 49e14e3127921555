package llm

import (
	"net/http"
	"sync"
)

// statusRecorder is the HTTP client handed to langchaingo. It adds
// attribution headers and remembers the last response status so failures
// can be classified without parsing error strings.
type statusRecorder struct {
	client  *http.Client
	headers map[string]string

	mu     sync.Mutex
	status int
}

func newStatusRecorder(client *http.Client, referer, title string) *statusRecorder {
	headers := make(map[string]string, 2)
	if referer != "" {
		headers["HTTP-Referer"] = referer
	}
	if title != "" {
		headers["X-Title"] = title
	}
	return &statusRecorder{client: client, headers: headers}
}

func (s *statusRecorder) Do(req *http.Request) (*http.Response, error) {
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if resp != nil {
		s.mu.Lock()
		s.status = resp.StatusCode
		s.mu.Unlock()
	}
	return resp, err
}

// Status returns the last observed status code, 0 if none.
func (s *statusRecorder) Status() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
