// Package codec translates between typed payloads and the byte streams stored in the bucket.
// It is pure and stateless; nothing here talks to a backend.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"blobapi/internal/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultMimeType is attached to decoded files; content is never sniffed.
	DefaultMimeType = "application/octet-stream"
	// UnknownName names a decoded file whose location has no final path segment.
	UnknownName = "unknown"
)

// Format declares how an object's bytes are interpreted.
type Format int

const (
	FormatRaw Format = iota
	FormatJSON
	FormatNamedFile
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatJSON:
		return "json"
	case FormatNamedFile:
		return "file"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat accepts raw, json and file. An empty string means raw.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw":
		return FormatRaw, nil
	case "json":
		return FormatJSON, nil
	case "file", "namedfile", "named_file":
		return FormatNamedFile, nil
	default:
		return 0, errs.Validation("parseFormat", "", fmt.Sprintf("unknown format %q", s))
	}
}

// Payload is one of Raw, Stream, JSON or *NamedFile.
type Payload interface {
	Format() Format
	payload()
}

// Raw is an opaque byte payload.
type Raw []byte

// Stream is a raw payload of unknown length. It is handed to the uploader as-is
// so the upload can start before the whole payload is available.
type Stream struct {
	io.Reader
}

// JSON holds a value stored as UTF-8 encoded JSON.
type JSON struct {
	Value any
}

// NamedFile is a byte payload framed with file metadata.
type NamedFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

func (Raw) Format() Format        { return FormatRaw }
func (Stream) Format() Format     { return FormatRaw }
func (JSON) Format() Format       { return FormatJSON }
func (*NamedFile) Format() Format { return FormatNamedFile }

func (Raw) payload()        {}
func (Stream) payload()     {}
func (JSON) payload()       {}
func (*NamedFile) payload() {}

// Encode returns the body to upload and its length, or -1 when the length is unknown.
func Encode(p Payload) (io.Reader, int64, error) {
	switch v := p.(type) {
	case Raw:
		return bytes.NewReader(v), int64(len(v)), nil
	case Stream:
		if v.Reader == nil {
			return nil, 0, errs.Validation("encode", "", "stream payload has no reader")
		}
		return v.Reader, -1, nil
	case JSON:
		b, err := json.Marshal(v.Value)
		if err != nil {
			return nil, 0, &errs.Error{Kind: errs.ErrValidation, Op: "encode", Err: err}
		}
		return bytes.NewReader(b), int64(len(b)), nil
	case *NamedFile:
		if v == nil {
			return nil, 0, errs.Validation("encode", "", "file payload is nil")
		}
		return bytes.NewReader(v.Data), int64(len(v.Data)), nil
	default:
		return nil, 0, errs.Validation("encode", "", "payload is required")
	}
}

// Decode interprets stored bytes according to f. location names the object; a
// NamedFile takes its name from the last path segment.
//
// An empty JSON body decodes to JSON{Value: nil}. Malformed JSON is an ErrDecode error.
func Decode(data []byte, f Format, location string) (Payload, error) {
	switch f {
	case FormatRaw:
		return Raw(data), nil
	case FormatJSON:
		if len(data) == 0 {
			return JSON{}, nil
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, errs.Decode("decode", location, err)
		}
		return JSON{Value: v}, nil
	case FormatNamedFile:
		return &NamedFile{
			Name:     NameFromLocation(location),
			Size:     int64(len(data)),
			MimeType: DefaultMimeType,
			Data:     data,
		}, nil
	default:
		return nil, errs.Validation("decode", location, fmt.Sprintf("unsupported format %s", f))
	}
}

// DecodeInto unmarshals JSON bytes into v.
func DecodeInto(data []byte, v any, location string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Decode("decode", location, err)
	}
	return nil
}

// NameFromLocation returns the final path segment of location, or UnknownName.
func NameFromLocation(location string) string {
	name := location
	if i := strings.LastIndex(location, "/"); i >= 0 {
		name = location[i+1:]
	}
	if name == "" {
		return UnknownName
	}
	return name
}
