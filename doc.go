// Package authclient provides the client side of a back-office session:
// credential storage, session lifecycle, role based route guarding and
// request signing for the REST API.
//
// Session lifecycle:
//   - SessionManager owns the in-memory identity and is the only writer of
//     the TokenStore. Start rehydrates a stored session, Login and Logout
//     move between the anonymous and authenticated states, and Subscribe
//     delivers every transition to observers in order.
//   - Credentials are JWTs. Their payload is decoded (optionally verified
//     through a keyfunc) and the embedded expiry is compared with the
//     manager clock. Anything that can't be decoded counts as expired.
//
// Authorization:
//   - AccessPolicy maps the five back-office roles to the sections they can
//     reach. RouteGuard combines it with the session to allow a navigation
//     or redirect it to the login or the dashboard.
//
// Transport:
//   - RequestAuthenticator is an http.RoundTripper that adds the bearer
//     credential to every request and signs the session out when the
//     backend answers 401. APIClient maps HTTP failures to go-errors values
//     that carry a message fit for display.
package authclient
