package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeForm  = "application/x-www-form-urlencoded"
	contentTypeOctet = "application/octet-stream"
)

// Multipart is a multipart/form-data body. The boundary is chosen when the
// body is encoded, and the resulting Content-Type always wins over any
// caller supplied header.
type Multipart struct {
	parts []formPart
}

type formPart struct {
	field       string
	filename    string
	contentType string
	value       []byte
	r           io.Reader
}

func NewMultipart() *Multipart {
	return &Multipart{}
}

func (m *Multipart) Field(name, value string) *Multipart {
	m.parts = append(m.parts, formPart{field: name, value: []byte(value)})
	return m
}

// File adds a file part. r is read once, when the request is built.
func (m *Multipart) File(field, filename string, r io.Reader) *Multipart {
	m.parts = append(m.parts, formPart{field: field, filename: filename, r: r})
	return m
}

// FileWithType is File with an explicit part Content-Type.
func (m *Multipart) FileWithType(field, filename, contentType string, r io.Reader) *Multipart {
	m.parts = append(m.parts, formPart{field: field, filename: filename, contentType: contentType, r: r})
	return m
}

func (m *Multipart) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range m.parts {
		if p.r == nil {
			if err := w.WriteField(p.field, string(p.value)); err != nil {
				return nil, "", err
			}
			continue
		}

		var (
			pw  io.Writer
			err error
		)
		if p.contentType != "" {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
			h.Set("Content-Type", p.contentType)
			pw, err = w.CreatePart(h)
		} else {
			pw, err = w.CreateFormFile(p.field, p.filename)
		}
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(pw, p.r); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", p.filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// payload is an encoded request body, kept so a replay sends the same bytes.
type payload struct {
	body        []byte
	contentType string
	// forced marks a Content-Type that callers cannot override.
	forced bool
}

func (p *payload) reader() io.Reader {
	if p == nil || p.body == nil {
		return nil
	}
	return bytes.NewReader(p.body)
}

func encodePayload(data any) (*payload, error) {
	switch v := data.(type) {
	case nil:
		return &payload{}, nil
	case *Multipart:
		body, ct, err := v.encode()
		if err != nil {
			return nil, fmt.Errorf("encode multipart: %w", err)
		}
		return &payload{body: body, contentType: ct, forced: true}, nil
	case url.Values:
		return &payload{body: []byte(v.Encode()), contentType: contentTypeForm}, nil
	case json.RawMessage:
		return &payload{body: v, contentType: contentTypeJSON}, nil
	case []byte:
		return &payload{body: v, contentType: contentTypeOctet}, nil
	case io.Reader:
		body, err := io.ReadAll(v)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return &payload{body: body, contentType: contentTypeOctet}, nil
	default:
		body, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return &payload{body: body, contentType: contentTypeJSON}, nil
	}
}
