package drawchat

import "net/url"

// DefaultOpenURL is the service entry point that accepts credentials.
const DefaultOpenURL = "https://api.draw.chat/v1/open"

// Values returns the credential as open-URL query parameters.
func (c *Credential) Values() url.Values {
	v := url.Values{}
	v.Set("public_key", c.PublicKey)
	v.Set("signature", c.Signature)
	v.Set("bseed", c.BoardSeed)
	v.Set("username", c.Username)
	v.Set("permissions", string(c.Permissions))
	if c.ConfigData != "" {
		v.Set("config_data", c.ConfigData)
		v.Set("config_signature", c.ConfigSignature)
	}
	return v
}

// Link returns the board URL for the credential. An empty openURL means
// DefaultOpenURL.
func (c *Credential) Link(openURL string) string {
	if openURL == "" {
		openURL = DefaultOpenURL
	}
	return openURL + "?" + c.Values().Encode()
}
