package notifier

import (
	"fmt"
	"strings"

	"hestia/models"
)

const (
	houseEmoji = "\U0001F3E0"
	euroEmoji  = "\U0001F4B6"
	sqmEmoji   = "\U0001F4D0"
	linkEmoji  = "\U0001F517"
	loveEmoji  = "\U0001F970"
)

var markdownV2Replacer = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"!", `\!`,
	"+", `\+`,
	"-", `\-`,
	"*", `\*`,
	"|", `\|`,
	"(", `\(`,
	")", `\)`,
	"[", `\[`,
	"]", `\]`,
	"_", `\_`,
	"~", `\~`,
	">", `\>`,
	"#", `\#`,
	"=", `\=`,
	"{", `\{`,
	"}", `\}`,
)

// Inside the (...) part of an inline link only ) and \ need escaping.
var linkURLReplacer = strings.NewReplacer(`\`, `\\`, ")", `\)`)

// EscapeMarkdownV2 escapes text so Telegram renders it literally in MarkdownV2
func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}

// FormatListing renders the MarkdownV2 notification for a listing. agency is
// the human readable agency name used as link label.
func FormatListing(l models.Listing, agency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s, %s\n", houseEmoji, l.Address, l.City)
	fmt.Fprintf(&b, "%s €%d/m\n", euroEmoji, l.Price)
	if l.HasFloorArea() {
		fmt.Fprintf(&b, "%s %d m²\n", sqmEmoji, l.SQM)
	}
	b.WriteString("\n")

	if agency == "" {
		agency = l.Source
	}
	return EscapeMarkdownV2(b.String()) +
		fmt.Sprintf("%s [%s](%s)", linkEmoji, EscapeMarkdownV2(agency), linkURLReplacer.Replace(l.URL))
}

// ThanksMessage renders the weekly MarkdownV2 thank-you note with the donation link
func ThanksMessage(donationLink string) string {
	return `Thanks for using Hestia, I\'ve put a lot of work into it and I hope it\'s helping you out\!

Moving is expensive enough and similar scraping services start at like €20/month\. ` +
		`Hopefully Hestia has helped you save some money\! With this open Tikkie you could use some of those savings to ` +
		fmt.Sprintf("[buy me a beer](%s) %s", linkURLReplacer.Replace(donationLink), loveEmoji) + `

Good luck in your search\!`
}
