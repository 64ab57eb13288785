package domain

import "fmt"

// Method identifies a second-factor method. The zero value is MethodNone.
//
// It is a closed enum: code switching on a Method must handle every constant
// and treat anything else as a wire-level error, so an unknown method coming
// from the server can never silently fall through a string comparison.
type Method uint8

const (
	MethodNone Method = iota
	MethodTOTP
	MethodEmailOTP
)

const (
	methodNoneWire     = "none"
	methodTOTPWire     = "totp"
	methodEmailOTPWire = "email_otp"
)

// ParseMethod maps a wire string onto a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case methodNoneWire, "":
		return MethodNone, nil
	case methodTOTPWire:
		return MethodTOTP, nil
	case methodEmailOTPWire:
		return MethodEmailOTP, nil
	default:
		return MethodNone, fmt.Errorf("domain: unknown mfa method %q", s)
	}
}

// String returns the canonical wire form.
func (m Method) String() string {
	switch m {
	case MethodTOTP:
		return methodTOTPWire
	case MethodEmailOTP:
		return methodEmailOTPWire
	default:
		return methodNoneWire
	}
}

// MarshalText implements encoding.TextMarshaler so the enum round-trips
// through JSON as its wire string.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
