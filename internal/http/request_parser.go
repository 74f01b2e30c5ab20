// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of simulation requests. Bodies may be JSON or
// form encoded; numeric fields accept numbers or numeric strings.

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

	"bondsim/internal/core"
)

// maxBodyBytes bounds simulation request bodies.
const maxBodyBytes = 64 << 10

// Input field names.
const (
	FieldMonthlyInvestment = "monthly_investment"
	FieldInvestmentYears   = "investment_years"
	FieldBondTenorYears    = "bond_tenor_years"
	FieldStartYear         = "start_year"
	FieldStartMonth        = "start_month"
)

// ParseError reports a body or field that could not be read.
type ParseError struct {
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// RequestBodyParser handles JSON and form-encoded request bodies.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body of r once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse decodes the body as JSON when it looks like JSON or is declared as
// such, and as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(body, "{") || strings.Contains(p.contentType, "json") {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("invalid JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = fmt.Errorf("invalid form body: %w", p.err)
	}
	return p.err
}

// Get returns a trimmed string value from the parsed data (JSON or form).
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

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseSimulationParams reads the five simulation inputs. It only checks that
// every field is present and numeric; range checks belong to core.
func ParseSimulationParams(r *http.Request) (core.SimulationParameters, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.SimulationParameters{}, &ParseError{Message: err.Error()}
	}

	var params core.SimulationParameters
	var err error
	if params.MonthlyInvestment, err = parseFloatField(p, FieldMonthlyInvestment); err != nil {
		return core.SimulationParameters{}, err
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{FieldInvestmentYears, &params.InvestmentYears},
		{FieldBondTenorYears, &params.BondTenorYears},
		{FieldStartYear, &params.StartYear},
		{FieldStartMonth, &params.StartMonth},
	}
	for _, f := range ints {
		if *f.dst, err = parseIntField(p, f.name); err != nil {
			return core.SimulationParameters{}, err
		}
	}
	return params, nil
}

func parseFloatField(p *RequestBodyParser, name string) (float64, error) {
	raw := strings.ReplaceAll(p.Get(name), ",", "")
	if raw == "" {
		return 0, &ParseError{Field: name, Message: "is required"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Field: name, Message: fmt.Sprintf("%q is not a number", raw)}
	}
	return v, nil
}

// parseIntField accepts integral values written as "5", "5.0" or 5.
func parseIntField(p *RequestBodyParser, name string) (int, error) {
	raw := p.Get(name)
	if raw == "" {
		return 0, &ParseError{Field: name, Message: "is required"}
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, &ParseError{Field: name, Message: fmt.Sprintf("%q is not a whole number", raw)}
	}
	return int(f), nil
}
