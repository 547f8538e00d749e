package domain

import "strings"

// Digits strips everything but ASCII digits.
func Digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhoneNumber hyphenates a domestic phone number. Seoul numbers use the
// two digit area code 02; everything else uses three digits.
func FormatPhoneNumber(value string) string {
	d := Digits(value)
	if len(d) < 4 {
		return d
	}

	if strings.HasPrefix(d, "02") {
		switch {
		case len(d) < 7:
			return d[:2] + "-" + d[2:]
		case len(d) < 10:
			return d[:2] + "-" + d[2:5] + "-" + d[5:]
		default:
			return d[:2] + "-" + d[2:6] + "-" + d[6:10]
		}
	}

	switch {
	case len(d) < 8:
		return d[:3] + "-" + d[3:]
	case len(d) < 11:
		return d[:3] + "-" + d[3:6] + "-" + d[6:]
	default:
		return d[:3] + "-" + d[3:7] + "-" + d[7:11]
	}
}

// FormatRegNumber renders a business registration number as 000-00-00000.
func FormatRegNumber(value string) string {
	d := Digits(value)
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 5:
		return d[:3] + "-" + d[3:]
	default:
		end := min(len(d), 10)
		return d[:3] + "-" + d[3:5] + "-" + d[5:end]
	}
}
