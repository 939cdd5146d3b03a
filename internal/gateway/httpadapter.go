package gateway

import (
	"errors"
	"io"
	"net/http"
)

// Adapter exposes the dispatcher as an http.Handler by reshaping each request
// into a gateway event and writing the gateway response back out. It keeps the
// dispatcher free of transport concerns.
type Adapter struct {
	dispatcher *Dispatcher
}

// NewAdapter wraps a dispatcher for use with net/http.
func NewAdapter(d *Dispatcher) *Adapter {
	return &Adapter{dispatcher: d}
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeResponse(w, a.dispatcher.validationError("Request body too large. Maximum size is 1MB."))
			return
		}
		writeResponse(w, a.dispatcher.errorResponse(http.StatusBadRequest, "BODY_READ_ERROR",
			"Failed to read request body", nil))
		return
	}

	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	query := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	event := Event{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
	}

	writeResponse(w, a.dispatcher.Handle(r.Context(), event))
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}
