package sensorbridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Format names how a device's response body is turned into a [Reading].
type Format string

const (
	// FormatText is the firmware's free-text status page, parsed by an [Extractor].
	FormatText Format = "text"

	// FormatJSON is a pre-structured payload with the Reading's JSON shape,
	// served by the device's /data route or by a relay.
	FormatJSON Format = "json"
)

// accept is the media type requested from devices of this format.
func (f Format) accept() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/plain, */*;q=0.5"
}

// ParseFormat converts a config string into a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected %q or %q)", s, FormatText, FormatJSON)
	}
}

// Decoder converts a successful response body into a Reading.
//
// A Decoder returns per-field results when it extracts fields individually
// (text) and nil otherwise. A non-nil error means the body is unusable and
// the fetch is reported as absent.
type Decoder func(body []byte) (Reading, []FieldResult, error)

// TextDecoder returns a [Decoder] that trims the body and runs it through e.
// It never returns an error: an unrecognisable page yields a zero Reading
// with every field reported missing.
func TextDecoder(e *Extractor) Decoder {
	if e == nil {
		e = defaultExtractor
	}
	return func(body []byte) (Reading, []FieldResult, error) {
		reading, results := e.ExtractFields(strings.TrimSpace(string(body)))
		return reading, results, nil
	}
}

// ErrEmptyPayload is returned by [JSONDecoder] for a blank body.
var ErrEmptyPayload = errors.New("empty payload")

// JSONDecoder decodes a structured payload directly into a Reading. Keys the
// payload omits keep their zero default; malformed JSON is an error.
var JSONDecoder Decoder = func(body []byte) (Reading, []FieldResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Reading{}, nil, ErrEmptyPayload
	}

	var reading Reading
	if err := json.Unmarshal(body, &reading); err != nil {
		return Reading{}, nil, fmt.Errorf("decode payload: %w", err)
	}
	return reading, nil, nil
}

// decoderFor picks the decoder for a format.
func decoderFor(format Format, e *Extractor) Decoder {
	if format == FormatJSON {
		return JSONDecoder
	}
	return TextDecoder(e)
}
