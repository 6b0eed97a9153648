package business

import (
	"strconv"
	"strings"

	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/entities"
	trackingentities "github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultTitle = "Oferta imperdível"

var brl = message.NewPrinter(language.BrazilianPortuguese)

// BuildMessage renders the promotional text for a link. Links without
// usable metadata get the generic template.
func BuildMessage(link trackingentities.TrackedLink) entities.Outbound {
	meta, ok := entities.ParseMetadata(link.Metadata)

	target := pickLink(link, meta)
	if !ok {
		return entities.Outbound{
			Text: "🛍️ Oferta Especial\n\n🔗 " + target,
			Link: target,
		}
	}

	title := meta.Title
	if title == "" {
		title = defaultTitle
	}

	sections := []string{"📦 " + title}

	if meta.Description != "" {
		sections = append(sections, meta.Description)
	}

	if meta.PriceRaw != "" {
		sections = append(sections, priceLines(meta))
	}

	if meta.Coupon != "" {
		sections = append(sections, "🎟 Cupom de desconto: "+meta.Coupon)
	}

	sections = append(sections,
		"🛒 Comprar agora:\n👉 "+target,
		"🛡️ Compra segura",
	)

	return entities.Outbound{
		Text:     strings.Join(sections, "\n\n"),
		ImageURL: meta.HTTPImage(),
		Link:     target,
	}
}

// priceLines shows De/Por and the discount when the original price is
// higher, and the current price alone otherwise
func priceLines(meta entities.Metadata) string {
	pct, ok := meta.DiscountPercent()
	if !ok {
		return "💰 Preço: R$ " + FormatPrice(meta)
	}
	return "💰 De: R$ " + brl.Sprintf("%.2f", meta.PriceOriginal) +
		"\n🔥 Por: R$ " + FormatPrice(meta) +
		"\n🎯 " + strconv.Itoa(pct) + "% OFF"
}

// FormatPrice renders a numeric price as pt-BR with two decimals ("1.234,56")
// and returns anything else unchanged
func FormatPrice(meta entities.Metadata) string {
	if !meta.HasPrice {
		return meta.PriceRaw
	}
	return brl.Sprintf("%.2f", meta.Price)
}

func pickLink(link trackingentities.TrackedLink, meta entities.Metadata) string {
	switch {
	case link.AffiliateLink != "":
		return link.AffiliateLink
	case meta.AffiliateLink != "":
		return meta.AffiliateLink
	default:
		return link.OriginalURL
	}
}
