package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// TokenHeader carries the controller-to-agent shared secret
const TokenHeader = "X-Agent-Token"

// ValidateToken compares the presented token against the expected one.
// The full value must match; an empty expected token never validates.
func ValidateToken(presented, expected string) bool {
	if expected == "" {
		return false
	}
	// ConstantTimeCompare returns 0 for different lengths, so prefixes fail
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// ValidateBasicAuth validates HTTP Basic Authentication credentials
func ValidateBasicAuth(authHeader, expectedUsername, expectedPassword string) bool {
	if authHeader == "" {
		return false
	}

	if !strings.HasPrefix(authHeader, "Basic ") {
		return false
	}

	encoded := strings.TrimPrefix(authHeader, "Basic ")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return false
	}

	usernameMatch := subtle.ConstantTimeCompare([]byte(parts[0]), []byte(expectedUsername)) == 1
	passwordMatch := subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expectedPassword)) == 1

	return usernameMatch && passwordMatch
}

// CreateBasicAuthHeader creates a Basic Auth header value
func CreateBasicAuthHeader(username, password string) string {
	credentials := username + ":" + password
	encoded := base64.StdEncoding.EncodeToString([]byte(credentials))
	return "Basic " + encoded
}
