package hedgedoc

import "strings"

// SessionCookieName is the express-session cookie HedgeDoc uses to identify a client
const SessionCookieName = "connect.sid"

// Cookie is a single named credential value
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Credentials is the ordered cookie set sent with the socket upgrade request
type Credentials []Cookie

// NewCredentials pairs a session id with the editor preference cookies
// the HedgeDoc client-side code expects to find.
func NewCredentials(sessionID string) Credentials {
	return Credentials{
		{Name: SessionCookieName, Value: sessionID},
		{Name: "loginstate", Value: "true"},
		{Name: "indent_type", Value: "space"},
		{Name: "space_units", Value: "4"},
		{Name: "keymap", Value: "vim"},
	}
}

// SessionID returns the connect.sid value or an empty string
func (c Credentials) SessionID() string {
	for _, ck := range c {
		if ck.Name == SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// Header renders the Cookie header, skipping entries without a value
func (c Credentials) Header() string {
	parts := make([]string, 0, len(c))
	for _, ck := range c {
		if ck.Value == "" {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}
