package server

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
)

// ReadHTTPRequest reads an HTTP request from a raw connection
func ReadHTTPRequest(conn net.Conn) (*http.Request, error) {
	reader := bufio.NewReader(conn)
	req, err := http.ReadRequest(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP request: %w", err)
	}
	req.RemoteAddr = conn.RemoteAddr().String()
	return req, nil
}

// responseWriter buffers a handler's response so exactly one response, with
// a Content-Length, goes out on the connection.
type responseWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: make(http.Header)}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}

// StatusCode returns the status written by the handler, defaulting to 200.
func (w *responseWriter) StatusCode() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.status
}

// writeTo serialises the response. The connection is always closed after
// one response.
func (w *responseWriter) writeTo(dst io.Writer, req *http.Request) error {
	if w.header.Get("Content-Type") == "" && w.body.Len() > 0 {
		w.header.Set("Content-Type", http.DetectContentType(w.body.Bytes()))
	}
	w.header.Set("Content-Length", strconv.Itoa(w.body.Len()))

	resp := &http.Response{
		StatusCode:    w.StatusCode(),
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.header,
		ContentLength: int64(w.body.Len()),
		Body:          io.NopCloser(bytes.NewReader(w.body.Bytes())),
		Close:         true,
		Request:       req,
	}
	if err := resp.Write(dst); err != nil {
		return fmt.Errorf("failed to write HTTP response: %w", err)
	}
	return nil
}

// writeHTML writes a complete text/html response.
func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
