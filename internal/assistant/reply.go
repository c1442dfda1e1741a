package assistant

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ComposeReply phrases the answer to a product query.
func ComposeReply(intent QueryIntent, found bool) string {
	subject := intent.ProductType
	if subject == "" {
		subject = "products"
	}
	brand := CapitalizeWords(intent.FirstBrand())

	if !found {
		if brand != "" {
			return "Sorry, I couldn't find any " + brand + " " + subject + " right now."
		}
		return "Sorry, I couldn't find any products matching your request."
	}

	switch {
	case brand != "":
		return "Here are some " + brand + " " + subject + " I found for you:"
	case intent.Audience != "":
		return "Here are some " + subject + " for " + intent.Audience + ":"
	default:
		return "Here are some " + subject + " that might interest you:"
	}
}

// CapitalizeWords upper-cases the first letter of every space-separated
// word and leaves the rest untouched.
func CapitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
