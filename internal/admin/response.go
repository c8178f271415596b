package admin

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response is the shared view of every administration response.
type Response interface {
	IsSuccess() bool
	StatusCode() int
	Headers() http.Header
	RawBody() []byte
}

type baseResponse struct {
	status  int
	headers http.Header
	body    []byte
}

func (r *baseResponse) StatusCode() int      { return r.status }
func (r *baseResponse) Headers() http.Header { return r.headers }
func (r *baseResponse) RawBody() []byte      { return r.body }

// ResultItem is one element of a JSON response's result array.
type ResultItem struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// JSONResponse is a response to a command that accepts application/json.
type JSONResponse struct {
	baseResponse
	ExitCode        string                 `json:"exit_code"`
	Message         string                 `json:"message"`
	Result          []ResultItem           `json:"result"`
	ExtraProperties map[string]interface{} `json:"extraProperties"`
}

// IsSuccess reports an HTTP 200 whose exit code is SUCCESS.
func (r *JSONResponse) IsSuccess() bool {
	return r.status == http.StatusOK && strings.EqualFold(r.ExitCode, "SUCCESS")
}

// Property returns the value of the first result entry named "key=value".
func (r *JSONResponse) Property(key string) (string, bool) {
	for _, item := range r.Result {
		k, v, ok := strings.Cut(item.Name, "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Properties returns every "key=value" result entry as a map.
func (r *JSONResponse) Properties() map[string]string {
	props := make(map[string]string, len(r.Result))
	for _, item := range r.Result {
		if k, v, ok := strings.Cut(item.Name, "="); ok {
			props[k] = v
		}
	}
	return props
}

// TextResponse is a response to a command that accepts text/plain.
type TextResponse struct {
	baseResponse
}

// IsSuccess reports an HTTP 200.
func (r *TextResponse) IsSuccess() bool {
	return r.status == http.StatusOK
}

// Text returns the body as a string.
func (r *TextResponse) Text() string {
	return string(r.body)
}

// newResponse builds the variant requested by accept. A JSON body that does
// not decode is kept raw and reported as unsuccessful.
func newResponse(accept string, status int, headers http.Header, body []byte) Response {
	base := baseResponse{status: status, headers: headers, body: body}
	if accept == ContentTypeText {
		return &TextResponse{baseResponse: base}
	}

	resp := &JSONResponse{baseResponse: base}
	if len(body) > 0 {
		if err := json.Unmarshal(body, resp); err != nil {
			resp.ExitCode = ""
			resp.Message = strings.TrimSpace(string(body))
		}
	}
	return resp
}

// describe returns a short failure description for logs and errors.
func describe(resp Response) string {
	if jr, ok := resp.(*JSONResponse); ok && jr.Message != "" {
		return jr.Message
	}
	body := strings.TrimSpace(string(resp.RawBody()))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return http.StatusText(resp.StatusCode())
	}
	return body
}
