// Package http serves the JSON API.
//
// This file holds the request parsing helpers shared by the handlers: query
// parameters, dates, month keys and request bodies.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// ParseMonthParam reads key as MM-YYYY. Missing means the month of now.
func ParseMonthParam(query url.Values, key string, now time.Time) (core.MonthKey, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.MonthKeyOf(now), nil
	}
	return core.ParseMonthKey(v)
}

// ParseIntParam reads key as an integer in [min, max]. Missing means def.
func ParseIntParam(query url.Values, key string, def, min, max int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s must be a number", key)
	}
	if n < min || n > max {
		return 0, badRequest("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

// ParseDateParam parses YYYY-MM-DD at midnight in loc. Empty yields the zero
// time.
func ParseDateParam(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// RequestBodyParser reads a JSON or form-encoded body once and serves its
// fields as strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes from r.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		p.err = badRequest("read body: %v", p.err)
	}
	return p
}

// Parse decodes the body as JSON when it looks like JSON, as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = badRequest("invalid JSON body: %v", err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = badRequest("invalid form body: %v", p.err)
	}
	return p.err
}

// Get returns the sanitized value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetAmount reads key as a whole amount. JSON numbers must be integral;
// text may carry a currency symbol and grouping separators. Zero is only
// accepted with allowZero.
func (p *RequestBodyParser) GetAmount(key string, allowZero bool) (int64, error) {
	var v int64
	if f, ok := p.jsonData[key].(float64); ok {
		if f != math.Trunc(f) || f < 0 || f > math.MaxInt64/2 {
			return 0, fmt.Errorf("%s: %w", key, core.ErrInvalidAmount)
		}
		v = int64(f)
	} else {
		text := p.Get(key)
		if !strings.ContainsAny(text, "0123456789") || strings.Contains(text, "-") {
			return 0, fmt.Errorf("%s: %w", key, core.ErrInvalidAmount)
		}
		v = core.ParseCurrencyInput(text)
	}
	if v < 0 || (v == 0 && !allowZero) {
		return 0, fmt.Errorf("%s: %w", key, core.ErrInvalidAmount)
	}
	return v, nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
