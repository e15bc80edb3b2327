package mailgun

import (
	"strings"

	"github.com/emersion/go-message/mail"
)

const replyPrefix = "reply+"

// ReplyAddress is the Reply-To address that routes answers back to an opportunity.
func ReplyAddress(opportunityID, domain string) string {
	return replyPrefix + opportunityID + "@" + domain
}

// ParseReplyAddress extracts the opportunity id from the first reply+<id>@
// address in recipient. recipient may be a single address or a list.
func ParseReplyAddress(recipient string) (string, bool) {
	for _, addr := range parseList(recipient) {
		local, _, ok := strings.Cut(addr, "@")
		if !ok {
			continue
		}
		if len(local) > len(replyPrefix) && strings.EqualFold(local[:len(replyPrefix)], replyPrefix) {
			return local[len(replyPrefix):], true
		}
	}
	return "", false
}

// Recipients returns the bare, lowercased addresses found in recipient.
func Recipients(recipient string) []string {
	list := parseList(recipient)
	for i := range list {
		list[i] = strings.ToLower(list[i])
	}
	return list
}

// ParseSender splits a From header into display name and address. Unparseable
// input is returned as the address.
func ParseSender(from string) (name, address string) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", strings.TrimSpace(from)
	}
	return addr.Name, addr.Address
}

// FromAddress formats the sender used for outbound mail.
func FromAddress(name, domain string) string {
	addr := &mail.Address{Name: name, Address: "hello@" + domain}
	if name == "" {
		return addr.Address
	}
	return addr.String()
}

func parseList(recipient string) []string {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil
	}
	var out []string
	if list, err := mail.ParseAddressList(recipient); err == nil {
		for _, a := range list {
			out = append(out, a.Address)
		}
		return out
	}
	// Mailgun sends bare addresses; fall back to a plain split.
	for _, part := range strings.Split(recipient, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
