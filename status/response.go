package status

import "net/http"

// Response is a finalized result. It is immutable; accessors return copies.
type Response struct {
	outcome Outcome
	code    int
	header  http.Header
	cookies []*http.Cookie
	body    []byte
}

func (r *Response) Outcome() Outcome { return r.outcome }

func (r *Response) Code() int { return r.code }

func (r *Response) Header() http.Header { return r.header.Clone() }

func (r *Response) Body() []byte { return append([]byte(nil), r.body...) }

func (r *Response) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, len(r.cookies))
	for i, c := range r.cookies {
		cp := *c
		out[i] = &cp
	}
	return out
}

// Write sends the response on w.
func (r *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for k, vs := range r.header {
		h[k] = append([]string(nil), vs...)
	}
	for _, c := range r.cookies {
		http.SetCookie(w, c)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	w.WriteHeader(r.code)
	_, err := w.Write(r.body)
	return err
}

// ServeHTTP lets a Response be mounted directly as a handler. Write errors
// are dropped; callers that log them use Write.
func (r *Response) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	_ = r.Write(w)
}
