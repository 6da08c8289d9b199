package history

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// AuthCookieName is the cookie carrying the signed authentication token
// handed out by Hadoop's HTTP authentication filter.
const AuthCookieName = "hadoop.auth"

// Authenticator performs the handshake that obtains a session token. The
// token ends up in the client's cookie jar and is sent with every later
// request made through the same client.
type Authenticator interface {
	Authenticate(ctx context.Context, client *http.Client, root *url.URL) error
}

// NewAuthenticator returns the authenticator for an auth.type config value.
func NewAuthenticator(kind, user string) (Authenticator, error) {
	switch kind {
	case "none":
		return NoAuth{}, nil
	case "simple":
		if user == "" {
			return nil, fmt.Errorf("simple authentication requires a user name")
		}
		return &PseudoAuthenticator{User: user}, nil
	}
	return nil, fmt.Errorf("unsupported authentication type: %q", kind)
}

// NoAuth is used against history servers without an authentication filter.
type NoAuth struct{}

func (NoAuth) Authenticate(context.Context, *http.Client, *url.URL) error {
	return nil
}

// PseudoAuthenticator implements Hadoop "simple" authentication: the user
// name is asserted with the user.name query parameter and the server replies
// with a signed hadoop.auth cookie.
type PseudoAuthenticator struct {
	User string
}

func (a *PseudoAuthenticator) Authenticate(ctx context.Context, client *http.Client, root *url.URL) error {
	u := *root
	q := u.Query()
	q.Set("user.name", a.User)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: handshake as %q returned %s", ErrAuthentication, a.User, resp.Status)
	}
	return nil
}

// tokenFromJar returns the hadoop.auth cookie value the jar holds for root.
func tokenFromJar(jar http.CookieJar, root *url.URL) string {
	if jar == nil {
		return ""
	}
	for _, c := range jar.Cookies(root) {
		if c.Name == AuthCookieName {
			return c.Value
		}
	}
	return ""
}
