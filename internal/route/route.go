package route

import (
	"net"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Route maps an inbound hostname to the base URL requests are forwarded to.
type Route struct {
	ID        int64  `json:"id"`
	Hostname  string `json:"hostname"`
	TargetURL string `json:"targetUrl"`
}

// Fields is the mutable part of a Route, as accepted by create and update.
type Fields struct {
	Hostname  string `json:"hostname"`
	TargetURL string `json:"targetUrl"`
}

// Fields returns the mutable part of r.
func (r Route) Fields() Fields {
	return Fields{Hostname: r.Hostname, TargetURL: r.TargetURL}
}

// Matches reports whether host addresses this route. Any port on host is
// ignored and the comparison is case-insensitive.
func (r Route) Matches(host string) bool {
	return strings.EqualFold(r.Hostname, StripPort(host))
}

// Normalize trims surrounding whitespace from both fields.
func (f Fields) Normalize() Fields {
	return Fields{
		Hostname:  strings.TrimSpace(f.Hostname),
		TargetURL: strings.TrimSpace(f.TargetURL),
	}
}

func (f Fields) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Hostname,
			validation.Required,
			validation.Length(1, 253),
			is.Host,
		),
		validation.Field(&f.TargetURL,
			validation.Required,
			validation.By(validateTargetURL),
		),
	)
}

// StripPort returns host without a trailing ":port", leaving bare IPv6
// literals intact.
func StripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.Trim(h, "[]")
	}
	return strings.Trim(host, "[]")
}

func validateTargetURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
