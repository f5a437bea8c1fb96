// Package router implements a minimal HTTP/HTTPS request router.
//
// An App owns a table of Routes keyed by their lowercased path. Each Route
// holds one handler per supported method (get, post, put, patch, head and
// options) and an optional route-level error handler. Path matching is an
// exact, case-insensitive comparison of the URL path; query strings and
// fragments are ignored.
//
// Handlers either write the response themselves and return Written, or
// return Respond(status, body) and let the App write it:
//
//	hello := router.NewRoute("/hello").
//		Get(func(w http.ResponseWriter, r *http.Request) (router.Result, error) {
//			return router.Respond(http.StatusOK, "hello"), nil
//		})
//
//	app, err := router.New()
//	if err != nil {
//		return err
//	}
//	app.AddRoute(hello)
//	if err := app.Listen(8080); err != nil {
//		return err
//	}
//
// Failures are recovered as close to their origin as possible: the route's
// error handler first, then the App's. A failure neither handles is raised
// to net/http, which logs it and aborts the response. The package itself
// never logs.
package router
