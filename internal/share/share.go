// Package share builds the texts and WhatsApp deep links a participant uses
// to settle a bill with its lender.
package share

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCountryCode is prefixed to local phone numbers.
	DefaultCountryCode = "62"

	directURL = "https://wa.me/"
	pickerURL = "https://api.whatsapp.com/send"
)

// FormatPhoneNumber normalizes a phone number to the international digits
// WhatsApp expects. It returns false when raw holds no digits.
func FormatPhoneNumber(raw, countryCode string) (string, bool) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:], true
	case strings.HasPrefix(digits, countryCode):
		return digits, true
	default:
		return countryCode + digits, true
	}
}

// WhatsAppURL returns a deep link that opens a chat prefilled with message.
// Without a phone the link lets the user pick the recipient.
func WhatsAppURL(phone, message string) string {
	text := url.QueryEscape(message)
	if phone == "" {
		return pickerURL + "?text=" + text
	}
	return directURL + phone + "?text=" + text
}

// FormatAmount renders amount in currency using the currency's own symbol,
// separators and minor units. Unknown codes fall back to the plain number.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// BillMessage is the note a participant sends to the lender to pay a bill.
func BillMessage(lenderName, receiptName string, amount decimal.Decimal, currency string) string {
	if lenderName == "" {
		lenderName = "there"
	}
	if receiptName == "" {
		receiptName = "the bill"
	}
	return fmt.Sprintf("Hi %s, I'd like to pay my share of %q: %s. Please confirm the account for the transfer.",
		lenderName, receiptName, FormatAmount(amount, currency))
}

// Line is one item of an itemized share text.
type Line struct {
	Name    string
	Portion int
	Amount  decimal.Decimal
}

// ShareText renders an itemized breakdown of what one person owes.
func ShareText(receiptName, personName string, lines []Line, total decimal.Decimal, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", receiptName, personName)
	for _, l := range lines {
		if l.Portion > 0 {
			fmt.Fprintf(&b, "- %s x%d: %s\n", l.Name, l.Portion, FormatAmount(l.Amount, currency))
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", l.Name, FormatAmount(l.Amount, currency))
	}
	fmt.Fprintf(&b, "Total: %s", FormatAmount(total, currency))
	return b.String()
}

// ValidCurrency reports whether code is an ISO currency go-money knows.
func ValidCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

// Places returns the number of minor-unit digits of currency, or 2 when the
// code is unknown.
func Places(currency string) int32 {
	if cur := money.GetCurrency(currency); cur != nil {
		return int32(cur.Fraction)
	}
	return 2
}
