package validator

import (
	"errors"
	"net/url"
)

// IsEndpointURL checks that a webhook endpoint is an absolute http(s) URL
// with a host. Anything else is rejected before it reaches the registry.
func IsEndpointURL(raw string) error {
	if raw == "" {
		return errors.New("endpoint URL is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.New("endpoint URL is not a valid URL")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("endpoint URL must use http or https")
	}

	if parsed.Host == "" {
		return errors.New("endpoint URL must include a host")
	}

	return nil
}
