package restfire

import (
	"net/http"
	"net/url"
	"strings"
)

// authParam is the query parameter carrying the credential.
const authParam = "auth"

// Request describes one outbound HTTP request. It is built by the library
// and executed by a Transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func buildGet(rawURL string, credential string) *Request {
	return buildRequest(http.MethodGet, rawURL, credential, nil)
}

func buildPost(rawURL string, credential string, body []byte) *Request {
	return buildRequest(http.MethodPost, rawURL, credential, body)
}

func buildPatch(rawURL string, credential string, body []byte) *Request {
	return buildRequest(http.MethodPatch, rawURL, credential, body)
}

func buildPut(rawURL string, credential string, body []byte) *Request {
	return buildRequest(http.MethodPut, rawURL, credential, body)
}

func buildDelete(rawURL string, credential string) *Request {
	return buildRequest(http.MethodDelete, rawURL, credential, nil)
}

func buildRequest(method string, rawURL string, credential string, body []byte) *Request {
	req := &Request{
		Method: method,
		URL:    rawURL,
		Header: http.Header{},
		Body:   body,
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(credential) > 0 {
		req.URL = appendQuery(rawURL, url.Values{authParam: []string{credential}})
	}
	return req
}

// withQuery adds query parameters, keeping the ones already present.
func (r *Request) withQuery(params url.Values) *Request {
	if len(params) == 0 {
		return r
	}
	r.URL = appendQuery(r.URL, params)
	return r
}

func appendQuery(rawURL string, params url.Values) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// not a parsable URL, the transport will report it
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + params.Encode()
	}

	query := u.Query()
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}
