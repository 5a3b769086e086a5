package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// ErrUnsupportedEncoding is returned for a Content-Encoding we cannot decode.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// AcceptEncoding lists the encodings DecodeBody understands; browser
// profiles advertise exactly these.
const AcceptEncoding = "gzip, deflate, zstd"

// DecodeBody removes the Content-Encoding applied by the upstream.
func DecodeBody(body []byte, contentEncoding string) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	switch enc {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		// Most servers send zlib-wrapped deflate; some send raw streams
		if r, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer r.Close()
			return io.ReadAll(r)
		}
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		return io.ReadAll(r)
	case "zstd":
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return d.DecodeAll(body, nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
	}
}

// minConfidence is the chardet confidence below which the html/charset
// default is kept.
const minConfidence = 50

// ToUTF8 transcodes a text body to UTF-8. The charset comes from a BOM or
// the Content-Type header, then a <meta> prescan, then statistical
// detection when nothing was declared. It returns the charset name used.
func ToUTF8(body []byte, contentType string) ([]byte, string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)

	if !certain && name == "windows-1252" {
		if res, err := chardet.NewHtmlDetector().DetectBest(body); err == nil && res.Confidence >= minConfidence {
			if detected, detectedName := charset.Lookup(res.Charset); detected != nil {
				enc, name = detected, detectedName
			}
		}
	}

	if name == "utf-8" {
		return bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")), name, nil
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, name, fmt.Errorf("transcode from %s: %w", name, err)
	}
	return out, name, nil
}
