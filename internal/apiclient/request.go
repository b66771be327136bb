package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// Unset marks a per-call header that must be left out of the request even when a
// default provides it. Uploads use it on Content-Type so the multipart boundary
// can be computed by the transport.
const Unset = "\x00unset"

type FileUpload struct {
	FieldName string
	FileName  string
	Content   []byte
}

// Request describes one call. It is built per call and never stored.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
	Upload *FileUpload
	// SkipAuthRetry keeps the 401 refresh policy away from calls that are
	// themselves part of the token lifecycle.
	SkipAuthRetry bool
}

type Response struct {
	Status   int
	Envelope Envelope[json.RawMessage]
}

func (r Request) URL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBase, base)
	}
	full := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		full += "?" + r.Query.Encode()
	}
	return full, nil
}

// EncodeBody returns the request body and the content type the transport has to
// send with it. An empty content type means the merged headers decide.
func (r Request) EncodeBody() (io.Reader, string, error) {
	if r.Upload != nil {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		field := r.Upload.FieldName
		if field == "" {
			field = "file"
		}
		part, err := writer.CreateFormFile(field, r.Upload.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(r.Upload.Content); err != nil {
			return nil, "", fmt.Errorf("write form file: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("close multipart: %w", err)
		}
		return &buf, writer.FormDataContentType(), nil
	}
	if r.Body == nil {
		return nil, "", nil
	}
	payload, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(payload), "", nil
}

// mergeHeaders layers defaults, instance headers and per-call overrides, in that
// order, and drops every key whose final value is Unset.
func mergeHeaders(layers ...http.Header) http.Header {
	merged := http.Header{}
	for _, layer := range layers {
		for key, values := range layer {
			merged[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
	for key, values := range merged {
		if len(values) > 0 && values[0] == Unset {
			delete(merged, key)
		}
	}
	return merged
}
