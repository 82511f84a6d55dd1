package knowledge

import (
	"errors"
	"strings"
)

var ErrInvalidISBN = errors.New("invalid isbn")

// NormalizeISBN strips separators and validates the ISBN-10/13 checksum.
// It returns the 13-digit form and, for 978-prefixed numbers, the 10-digit form.
func NormalizeISBN(raw string) (isbn13 string, isbn10 string, err error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == '-' || r == ' ':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		default:
			return "", "", ErrInvalidISBN
		}
	}
	s := b.String()
	switch len(s) {
	case 10:
		if !validISBN10(s) {
			return "", "", ErrInvalidISBN
		}
		return isbn10To13(s), s, nil
	case 13:
		if !validISBN13(s) {
			return "", "", ErrInvalidISBN
		}
		return s, isbn13To10(s), nil
	default:
		return "", "", ErrInvalidISBN
	}
}

func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		var d int
		switch {
		case s[i] == 'X' && i == 9:
			d = 10
		case s[i] >= '0' && s[i] <= '9':
			d = int(s[i] - '0')
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	if strings.ContainsRune(s, 'X') {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return int(s[12]-'0') == check
}

func isbn10To13(s string) string {
	body := "978" + s[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return body + string(rune('0'+(10-sum%10)%10))
}

func isbn13To10(s string) string {
	if !strings.HasPrefix(s, "978") {
		return ""
	}
	body := s[3:12]
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(body[i]-'0') * (10 - i)
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return body + "X"
	}
	return body + string(rune('0'+check))
}
