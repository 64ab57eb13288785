package ui

import (
	"fmt"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/pquerna/otp"
)

// renderQR draws the provisioning URI as a terminal QR code. Rendering is
// best effort; on failure the caller falls back to showing the secret for
// manual entry.
func renderQR(uri string) (code string, err error) {
	if uri == "" {
		return "", fmt.Errorf("empty provisioning uri")
	}

	// qrterminal panics on input it cannot encode.
	defer func() {
		if r := recover(); r != nil {
			code = ""
			err = fmt.Errorf("render qr: %v", r)
		}
	}()

	var b strings.Builder
	qrterminal.GenerateWithConfig(uri, qrterminal.Config{
		Level:      qrterminal.L,
		Writer:     &b,
		HalfBlocks: true,
		QuietZone:  1,
	})
	return b.String(), nil
}

// provisioningLabel extracts the issuer and account name from an otpauth://
// provisioning URI for display next to the QR code. Returns "" when the URI
// does not parse; the enrollment screen works without it.
func provisioningLabel(uri string) string {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return ""
	}

	issuer := key.Issuer()
	account := key.AccountName()
	switch {
	case issuer != "" && account != "":
		return fmt.Sprintf("%s (%s)", issuer, account)
	case issuer != "":
		return issuer
	default:
		return account
	}
}
