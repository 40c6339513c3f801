package wol

import (
	"net"
	"regexp"
	"strings"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/apperr"
)

var canonicalMAC = regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// NormalizeMAC returns the canonical lower-case colon-separated form of mac.
// Both ':' and '-' are accepted as separators on input.
func NormalizeMAC(mac string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(mac))
	m = strings.ReplaceAll(m, "-", ":")
	if !canonicalMAC.MatchString(m) {
		return "", apperr.Validation("invalid MAC address %q", mac)
	}
	return m, nil
}

// ParseMAC normalizes mac and returns its six bytes
func ParseMAC(mac string) (net.HardwareAddr, error) {
	canonical, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}
	hw, err := net.ParseMAC(canonical)
	if err != nil {
		return nil, apperr.Validation("invalid MAC address %q", mac)
	}
	return hw, nil
}
