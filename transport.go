package authclient

import (
	"net/http"
	"strings"
)

const (
	HeaderAuthorization = "Authorization"
	DefaultAuthScheme   = "Bearer"
)

// RequestAuthenticator is an http.RoundTripper that signs outgoing requests
// with the stored credential and signs the session out when the backend
// answers 401 to that credential. It never blocks a request.
type RequestAuthenticator struct {
	source CredentialSource
	next   http.RoundTripper
	scheme string
	logger Logger
}

var _ http.RoundTripper = &RequestAuthenticator{}

// NewRequestAuthenticator wraps next, http.DefaultTransport when nil
func NewRequestAuthenticator(source CredentialSource, next http.RoundTripper) *RequestAuthenticator {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RequestAuthenticator{
		source: source,
		next:   next,
		scheme: DefaultAuthScheme,
		logger: defLogger{},
	}
}

func (a *RequestAuthenticator) WithLogger(logger Logger) *RequestAuthenticator {
	a.logger = normalizeLogger(logger)
	return a
}

// WithAuthScheme changes the Authorization scheme, Bearer by default
func (a *RequestAuthenticator) WithAuthScheme(scheme string) *RequestAuthenticator {
	if scheme = strings.TrimSpace(scheme); scheme != "" {
		a.scheme = scheme
	}
	return a
}

// RoundTrip implements http.RoundTripper
func (a *RequestAuthenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	outgoing := req
	credential, signed := a.source.Credential(ctx)
	if signed {
		outgoing = req.Clone(ctx)
		outgoing.Header.Set(HeaderAuthorization, a.scheme+" "+credential.String())
	}

	resp, err := a.next.RoundTrip(outgoing)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && signed {
		a.logger.Info("authentication denied by backend, signing out",
			"method", req.Method,
			"url", req.URL.Redacted(),
		)
		a.source.HandleAuthenticationDenied(ctx, credential)
	}

	return resp, nil
}

// NewAuthenticatedHTTPClient returns an http.Client whose transport signs
// requests through source
func NewAuthenticatedHTTPClient(source CredentialSource, base *http.Client) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.Transport = NewRequestAuthenticator(source, client.Transport)
	return client
}
