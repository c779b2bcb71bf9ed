package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func gzipTestHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("received: " + string(body)))
}

func TestGzipMiddleware(t *testing.T) {
	type want struct {
		statusCode      int
		contentEncoding string
		bodyContains    string
	}

	tests := []struct {
		name        string
		requestBody string
		gzipRequest bool
		headers     map[string]string
		want        want
	}{
		{
			name:        "client accepts gzip",
			requestBody: `{"designation":"Palan 1T"}`,
			headers: map[string]string{
				"Accept-Encoding": "gzip",
				"Content-Type":    "application/json",
			},
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "gzip",
				bodyContains:    `received: {"designation":"Palan 1T"}`,
			},
		},
		{
			name:        "client does not accept gzip",
			requestBody: "plain request",
			headers:     map[string]string{},
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "",
				bodyContains:    "received: plain request",
			},
		},
		{
			name:        "gzipped request body is decompressed",
			requestBody: "compressed payload",
			gzipRequest: true,
			headers: map[string]string{
				"Content-Encoding": "gzip",
			},
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "",
				bodyContains:    "received: compressed payload",
			},
		},
	}

	handler := GzipMiddleware(http.HandlerFunc(gzipTestHandler))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(tt.requestBody)
			if tt.gzipRequest {
				var buf bytes.Buffer
				zw := gzip.NewWriter(&buf)
				_, _ = zw.Write([]byte(tt.requestBody))
				_ = zw.Close()
				body = &buf
			}

			req := httptest.NewRequest(http.MethodPost, "/", body)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want.statusCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want.statusCode)
			}
			if got := rec.Header().Get("Content-Encoding"); got != tt.want.contentEncoding {
				t.Fatalf("Content-Encoding = %q, want %q", got, tt.want.contentEncoding)
			}

			respBody := rec.Body.Bytes()
			if tt.want.contentEncoding == "gzip" {
				zr, err := gzip.NewReader(bytes.NewReader(respBody))
				if err != nil {
					t.Fatalf("response is not valid gzip: %v", err)
				}
				respBody, err = io.ReadAll(zr)
				if err != nil {
					t.Fatalf("decompress response: %v", err)
				}
			}

			if !strings.Contains(string(respBody), tt.want.bodyContains) {
				t.Errorf("body %q does not contain %q", respBody, tt.want.bodyContains)
			}
		})
	}
}
