package entities

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Metadata is the product data written by the external enricher. Every
// field is optional; numeric fields may arrive as JSON numbers or strings.
type Metadata struct {
	Title         string
	Description   string
	PriceRaw      string
	Price         float64
	HasPrice      bool // PriceRaw parsed as a number
	PriceOriginal float64
	Coupon        string
	ImageURL      string
	AffiliateLink string
}

// ParseMetadata decodes the metadata column. ok is false for empty or
// malformed input, in which case the zero Metadata is returned.
func ParseMetadata(raw string) (Metadata, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Metadata{}, false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return Metadata{}, false
	}

	m := Metadata{
		Title:         firstString(fields, "product_title", "title"),
		Description:   firstString(fields, "ai_description", "description"),
		PriceRaw:      firstString(fields, "product_price", "price"),
		Coupon:        firstString(fields, "cupom", "coupon"),
		ImageURL:      firstString(fields, "product_image", "image"),
		AffiliateLink: firstString(fields, "affiliate_link"),
	}

	if v, ok := parseNumber(m.PriceRaw); ok {
		m.Price = v
		m.HasPrice = true
	}
	if v, ok := parseNumber(firstString(fields, "price_original", "original_price")); ok {
		m.PriceOriginal = v
	}

	return m, true
}

// DiscountPercent returns the rounded discount when the original price is
// higher than the current one
func (m Metadata) DiscountPercent() (int, bool) {
	if !m.HasPrice || m.Price <= 0 || m.PriceOriginal <= m.Price {
		return 0, false
	}
	pct := int((m.PriceOriginal-m.Price)/m.PriceOriginal*100 + 0.5)
	if pct <= 0 {
		return 0, false
	}
	return pct, true
}

// HTTPImage returns the image URL when it can be downloaded; inline data:
// URIs are ignored
func (m Metadata) HTTPImage() string {
	lower := strings.ToLower(m.ImageURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return m.ImageURL
	}
	return ""
}

func firstString(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// parseNumber accepts "1234.56", "1234,56" and "R$ 1.234,56"
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
