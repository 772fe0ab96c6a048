package restfire

import (
	"errors"
	"net/http"
)

var errNoValue = errors.New("null document for a type without a no-value representation")

// classifier is the single status / body policy shared by every request-response operation:
//
//   - 200: success, the body is decoded into the expected type (if any)
//   - 401, 403: ErrAccessDenied
//   - anything else: ErrUnexpectedStatus
type classifier struct {
	codec  Codec
	logger Logger
}

// checkStatus applies the status part of the policy.
func (c *classifier) checkStatus(url string, resp *Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil

	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Warnf("Request to '%s' violates the security rules, status: %d", url, resp.StatusCode)
		return newError(ErrAccessDenied, url, resp.StatusCode, string(resp.Body), nil)

	default:
		c.logger.Warnf("Unsupported status code %d for '%s', body: %s", resp.StatusCode, url, resp.Body)
		return newError(ErrUnexpectedStatus, url, resp.StatusCode, string(resp.Body), nil)
	}
}

// classifyNone is used when no value is expected from a successful response.
func (c *classifier) classifyNone(url string, resp *Response) error {
	return c.checkStatus(url, resp)
}

// classifyInto decodes a successful response into target.
func (c *classifier) classifyInto(url string, resp *Response, target any) error {
	if err := c.checkStatus(url, resp); err != nil {
		return err
	}

	if err := decodeValue(c.codec, resp.Body, target); err != nil {
		c.logger.Warnf("Failed to parse response body for request '%s': %v", url, err)
		return newError(ErrDeserialization, url, resp.StatusCode, string(resp.Body), err)
	}
	return nil
}

func classify[T any](c *classifier, url string, resp *Response) (T, error) {
	var value T
	if err := c.classifyInto(url, resp, &value); err != nil {
		var empty T
		return empty, err
	}
	return value, nil
}
