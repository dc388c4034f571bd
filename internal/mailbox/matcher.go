package mailbox

import (
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Carrier relays put the code in a short digit run, but the surrounding
// text often carries other runs too (dates, the relayed phone number,
// gateway boilerplate). Every run is a candidate; only equality with the
// expected code counts.
var codePattern = regexp.MustCompile(`\d{4,8}`)

// containsCode reports whether any digit run in s equals the expected code.
func containsCode(s, expected string) bool {
	for _, candidate := range codePattern.FindAllString(s, -1) {
		if candidate == expected {
			return true
		}
	}
	return false
}

// senderMatchesPhone reports whether the address carries the phone number
// in its local part, e.g. smsgateway+01000000000@carrier.example.
func senderMatchesPhone(addr, phone string) bool {
	at := strings.IndexByte(addr, '@')
	if at < 0 {
		return false
	}
	return strings.Contains(addr[:at], phone)
}

// scanMessage parses one full RFC 5322 message. If the sender matches the
// phone number it walks every text part, and any attachment with a
// plain-text filename, until one contains the expected code. Parts whose
// digits do not match never end the scan; some carriers prepend a
// boilerplate part before the one holding the code, and others deliver the
// code inside a .txt attachment instead of the body.
func scanMessage(r io.Reader, phone, expected string) bool {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return false
	}
	defer mr.Close()

	from, err := mr.Header.AddressList("From")
	if err != nil || len(from) == 0 {
		return false
	}
	matched := false
	for _, a := range from {
		if senderMatchesPhone(a.Address, phone) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if ct != "" && !strings.HasPrefix(ct, "text/") {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if containsCode(string(body), expected) {
				return true
			}
		case *mail.AttachmentHeader:
			name, err := h.Filename()
			if err != nil || !strings.HasSuffix(strings.ToLower(name), ".txt") {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if containsCode(string(body), expected) {
				return true
			}
		}
	}
	return false
}
