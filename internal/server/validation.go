package server

import (
	"regexp"
	"strings"
)

// WhatsAppLinkPrefix is the only accepted form of group invite link.
const WhatsAppLinkPrefix = "https://chat.whatsapp.com/"

// E.164 style: leading +, no leading zero, 8 to 15 digits.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

func validateSessionName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("session name is required")
	}
	return name, nil
}

func validateWhatsAppLink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, WhatsAppLinkPrefix) || len(link) == len(WhatsAppLinkPrefix) {
		return "", validationError("whatsapp link must start with %s", WhatsAppLinkPrefix)
	}
	return link, nil
}

func validateContact(name, phone string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", validationError("name is required")
	}

	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", "", validationError("phone must be in international format, e.g. +233241234567")
	}

	return name, phone, nil
}
