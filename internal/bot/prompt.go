package bot

import (
	"fmt"
	"strings"

	"chefbot/internal/repo"
)

// DefaultMenuItem seeds a freshly registered restaurant.
type DefaultMenuItem struct {
	Name  string
	Price int64
	Glyph string
}

// DefaultMenu is the starter menu every new restaurant receives.
func DefaultMenu() []DefaultMenuItem {
	return []DefaultMenuItem{
		{Name: "Jollof Rice", Price: 2500, Glyph: "🍛"},
		{Name: "Fried Rice", Price: 2000, Glyph: "🍚"},
		{Name: "Chicken", Price: 3000, Glyph: "🍗"},
		{Name: "Fried Plantain", Price: 1000, Glyph: "🍌"},
	}
}

// SystemPrompt builds the instruction for the completion call. When a
// tenant is resolved the prompt carries that restaurant's name and live
// menu; otherwise the generic starter menu is used.
func SystemPrompt(tenant *repo.Tenant, items []repo.MenuItem) string {
	name := "the restaurant"
	if tenant != nil && tenant.Name != "" {
		name = tenant.Name
	}

	var menu strings.Builder
	if len(items) > 0 {
		for _, item := range items {
			fmt.Fprintf(&menu, "%s %s - ₦%s\n", item.Glyph, item.Name, formatPrice(item.Price))
		}
	} else {
		for _, item := range DefaultMenu() {
			fmt.Fprintf(&menu, "%s %s - ₦%s\n", item.Glyph, item.Name, formatPrice(item.Price))
		}
	}

	return fmt.Sprintf(`You are ChefBot, an AI assistant for %s on WhatsApp.

Today's Menu:
%s
Your role:
- Help customers with menu inquiries
- Take and confirm food orders
- Answer questions about the restaurant

IMPORTANT: Keep responses SHORT (2-3 sentences max) since this is WhatsApp.`, name, menu.String())
}

// formatPrice renders minor-unit prices with thousand separators, e.g. 2500
// becomes "2,500".
func formatPrice(price int64) string {
	s := fmt.Sprintf("%d", price)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
