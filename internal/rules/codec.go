package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/tvabook-dev/tvabook/internal/model"
)

// The persisted document is the historical tva_rules.json shape:
//
//	{"tva_rates": {"standard": 20.0, ...}, "keywords": {"standard": ["ovh"], ...}}
//
// Category order is significant (first matching category wins), so rates are
// decoded token by token in document order instead of through a Go map.

// DecodeRules reads a ruleset document, preserving category order.
func DecodeRules(r io.Reader) ([]model.Rule, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	var ordered []model.Rule
	keywords := make(map[string][]string)
	seenRates := false

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := keyTok.(string)

		switch key {
		case "tva_rates":
			if seenRates {
				return nil, fmt.Errorf("duplicate tva_rates section")
			}
			seenRates = true
			ordered, err = decodeRates(dec)
			if err != nil {
				return nil, err
			}
		case "keywords":
			if err := dec.Decode(&keywords); err != nil {
				return nil, fmt.Errorf("keywords: %w", err)
			}
		default:
			return nil, fmt.Errorf("unknown section %q", key)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	if !seenRates {
		return nil, fmt.Errorf("missing tva_rates section")
	}

	seen := make(map[string]bool, len(ordered))
	for i := range ordered {
		cat := ordered[i].Category
		if seen[cat] {
			return nil, fmt.Errorf("duplicate category %q", cat)
		}
		seen[cat] = true
		ordered[i].Keywords = keywords[cat]
	}
	for cat := range keywords {
		if !seen[cat] {
			return nil, fmt.Errorf("keywords for unknown category %q", cat)
		}
	}
	return ordered, nil
}

func decodeRates(dec *json.Decoder) ([]model.Rule, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("tva_rates: %w", err)
	}

	var rules []model.Rule
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		cat := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return nil, fmt.Errorf("tva_rates[%s]: not a number", cat)
		}
		rate, err := decimal.NewFromString(num.String())
		if err != nil {
			return nil, fmt.Errorf("tva_rates[%s]: %w", cat, err)
		}
		rules = append(rules, model.Rule{Category: cat, Rate: rate})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("tva_rates: %w", err)
	}
	return rules, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// EncodeRules writes a ruleset in the persisted document shape, categories
// in store order.
func EncodeRules(w io.Writer, rules []model.Rule) error {
	var buf bytes.Buffer
	buf.WriteString("{\n  \"tva_rates\": {")
	for i, r := range rules {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Category)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "\n    %s: %s", key, r.Rate.String())
	}
	buf.WriteString("\n  },\n  \"keywords\": {")
	for i, r := range rules {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Category)
		if err != nil {
			return err
		}
		kw := r.Keywords
		if kw == nil {
			kw = []string{}
		}
		val, err := json.Marshal(kw)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "\n    %s: %s", key, val)
	}
	buf.WriteString("\n  }\n}\n")

	_, err := w.Write(buf.Bytes())
	return err
}
