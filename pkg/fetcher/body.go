package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// Multipart is a multipart/form-data payload. It is sent unmodified with its own boundary.
type Multipart struct {
	buf    bytes.Buffer
	w      *multipart.Writer
	closed bool
}

// NewMultipart returns an empty multipart payload.
func NewMultipart() *Multipart {
	m := &Multipart{}
	m.w = multipart.NewWriter(&m.buf)
	return m
}

// WriteField adds a plain form field.
func (m *Multipart) WriteField(name, value string) error {
	return m.w.WriteField(name, value)
}

// WriteFile adds a file part read from r.
func (m *Multipart) WriteFile(field, filename string, r io.Reader) error {
	part, err := m.w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

// ContentType returns the content type including the boundary.
func (m *Multipart) ContentType() string { return m.w.FormDataContentType() }

// Reader finalizes the payload and returns its bytes.
func (m *Multipart) Reader() (io.Reader, error) {
	if !m.closed {
		if err := m.w.Close(); err != nil {
			return nil, err
		}
		m.closed = true
	}
	return bytes.NewReader(m.buf.Bytes()), nil
}

// encodeBody returns the request body and the content type the fetcher has to set.
// Raw payloads pass through with no content type; everything else is JSON.
func encodeBody(v any) (io.Reader, string, error) {
	switch b := v.(type) {
	case nil:
		return strings.NewReader("null"), "application/json", nil
	case string:
		return strings.NewReader(b), "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case *Multipart:
		r, err := b.Reader()
		if err != nil {
			return nil, "", fmt.Errorf("finalize multipart body: %w", err)
		}
		return r, b.ContentType(), nil
	case io.Reader:
		return b, "", nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}
