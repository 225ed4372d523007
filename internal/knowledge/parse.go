package knowledge

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Binding variable names shared by the queries and the row parsers.
const (
	varCountry      = "country"
	varCountryLabel = "countryLabel"
	varCapital      = "capital"
	varCapitalLabel = "capitalLabel"
	varPopulation   = "population"
	varThumbnail    = "thumbnail"
)

// maxBodySnippet bounds how much of a response body is carried in errors.
const maxBodySnippet = 512

// parseBindings validates a SPARQL JSON result document and returns its
// rows. A body that is not JSON, or has no results.bindings array, is a
// MalformedDataError.
func parseBindings(payload []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(payload) {
		return nil, &MalformedDataError{Reason: "body is not valid JSON", Body: snippet(payload)}
	}
	bindings := gjson.GetBytes(payload, "results.bindings")
	if !bindings.IsArray() {
		return nil, &MalformedDataError{Reason: "missing results.bindings array", Body: snippet(payload)}
	}
	return bindings.Array(), nil
}

// parseFacts maps rows to Facts. Rows without a country IRI or with a blank
// country label are dropped.
func parseFacts(rows []gjson.Result) []Fact {
	out := make([]Fact, 0, len(rows))
	for _, row := range rows {
		uri, _ := bindingValue(row, varCountry)
		label, _ := bindingValue(row, varCountryLabel)
		f := Fact{
			SubjectURI:   strings.TrimSpace(uri),
			SubjectLabel: strings.TrimSpace(label),
		}
		if !f.Valid() {
			continue
		}
		f.RelatedURI, _ = bindingValue(row, varCapital)
		capital, _ := bindingValue(row, varCapitalLabel)
		f.RelatedLabel = strings.TrimSpace(capital)
		f.ImageURL, _ = bindingValue(row, varThumbnail)
		if raw, ok := bindingValue(row, varPopulation); ok {
			f.Population = parsePopulation(raw)
		}
		out = append(out, f)
	}
	return out
}

// parseLabels extracts the non-blank values of one variable.
func parseLabels(rows []gjson.Result, name string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		v, ok := bindingValue(row, name)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// bindingValue returns row[name].value. A missing key means the variable is
// unbound for this row.
func bindingValue(row gjson.Result, name string) (string, bool) {
	if !row.IsObject() {
		return "", false
	}
	cell := row.Get(gjson.Escape(name))
	if !cell.IsObject() {
		return "", false
	}
	v := cell.Get("value")
	if !v.Exists() {
		return "", false
	}
	return v.String(), true
}

// parsePopulation is best effort: plain integers, then floats such as
// "1.4E9", then the digits of a formatted value such as "96,208,984".
// Anything else yields nil.
func parsePopulation(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
			return nil
		}
		n := int64(f)
		return &n
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func snippet(b []byte) string {
	if len(b) > maxBodySnippet {
		return string(b[:maxBodySnippet]) + "..."
	}
	return string(b)
}
