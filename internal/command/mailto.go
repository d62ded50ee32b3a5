package command

import (
	"net/url"
	"strings"
)

var componentFixups = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes s the way browsers encode a URI component:
// spaces become %20 and the marks !'()* stay literal.
func EscapeComponent(s string) string {
	return componentFixups.Replace(url.QueryEscape(s))
}

// MailtoURL builds the mailto: URI handed to the platform mail client.
func MailtoURL(to, subject, body string) string {
	return "mailto:" + to + "?subject=" + EscapeComponent(subject) + "&body=" + EscapeComponent(body)
}
