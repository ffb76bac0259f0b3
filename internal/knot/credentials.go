// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package knot

import "encoding/base64"

// Credentials are the server-held partner API credentials. They are built
// once at startup and never leave the process.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// AuthorizationHeader returns the HTTP Basic credential for the partner API.
func (c Credentials) AuthorizationHeader() string {
	token := base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
	return "Basic " + token
}

// String redacts the secret so Credentials can be passed to loggers safely.
func (c Credentials) String() string {
	secret := "<unset>"
	if c.ClientSecret != "" {
		secret = "***"
	}
	return "knot.Credentials{ClientID: " + c.ClientID + ", ClientSecret: " + secret + "}"
}

// GoString keeps %#v from printing the secret.
func (c Credentials) GoString() string {
	return c.String()
}
