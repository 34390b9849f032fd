package access

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	SchemeBasic   = "basic"
	SchemeSession = "session"

	basicPrefix = "Basic "
)

// Credential is what a request presents: an identity/secret pair or a session token.
type Credential struct {
	Scheme   string
	Identity string
	Secret   string
	Token    string
}

// ExtractBasic parses "Basic " + base64(identity ":" secret).
// The secret is everything after the first colon.
func ExtractBasic(header string) (Credential, bool) {
	if !strings.HasPrefix(header, basicPrefix) {
		return Credential{}, false
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(basicPrefix):]))
	if err != nil {
		return Credential{}, false
	}

	identity, secret, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Credential{}, false
	}

	return Credential{Scheme: SchemeBasic, Identity: identity, Secret: secret}, true
}

func ExtractSession(r *http.Request, cookieName string) (Credential, bool) {
	if r == nil || cookieName == "" {
		return Credential{}, false
	}

	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return Credential{}, false
	}

	return Credential{Scheme: SchemeSession, Token: c.Value}, true
}
