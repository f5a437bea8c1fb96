package router

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
)

// ServeHTTP dispatches the request. A failure no error handler recovers is
// raised as a panic so net/http's connection boundary logs it and aborts
// the response. A body that could not be written only aborts the
// connection.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := a.Dispatch(w, r)
	if err == nil {
		return
	}

	var we *WriteError
	if errors.As(err, &we) {
		if a.errorLog != nil {
			a.errorLog.Warn("response aborted", "method", r.Method, "path", r.URL.Path, "error", we.Err)
		}
		panic(http.ErrAbortHandler)
	}
	panic(err)
}

// Dispatch resolves the request to a handler, invokes it and applies its
// Result. Failures go to the route's error handler, then the App's. An
// unrecovered routing failure is answered with 404 or 405; any other
// unrecovered failure is returned, as is a *WriteError when the body
// cannot be written.
func (a *App) Dispatch(w http.ResponseWriter, r *http.Request) error {
	method := strings.ToLower(r.Method)
	if method == "" {
		method = string(MethodGet)
	}

	path := "/"
	if r.URL != nil && r.URL.Path != "" {
		path = r.URL.Path
	}
	path = normalize(path)

	a.mutex.RLock()
	route, ok := a.routes[path]
	appHandler := a.errorHandler
	a.mutex.RUnlock()

	var res Result
	var err error
	if !ok {
		err = &RouteError{Path: path, Method: method, Err: ErrRouteNotFound}
	} else {
		res, err = serveRoute(route, method, w, r)
	}

	if err != nil && appHandler != nil {
		res, err = recoverWith(appHandler, w, r, err)
	}

	if err != nil {
		return fallback(w, route, err)
	}

	return res.writeTo(w)
}

// serveRoute runs the route's handler for method and, on failure, the
// route's error handler.
func serveRoute(route *Route, method string, w http.ResponseWriter, r *http.Request) (Result, error) {
	h, ok := route.Handler(method)
	if !ok {
		err := &RouteError{Path: normalize(route.Path()), Method: method, Err: ErrMethodNotAllowed}
		return recoverWith(route.ErrorHandler(), w, r, err)
	}

	res, err := invoke(func() (Result, error) { return h(w, r) })
	if err == nil {
		return res, nil
	}

	return recoverWith(route.ErrorHandler(), w, r, err)
}

func recoverWith(h ErrorHandler, w http.ResponseWriter, r *http.Request, err error) (Result, error) {
	if h == nil {
		return Result{}, err
	}

	return invoke(func() (Result, error) { return h(w, r, err) })
}

// invoke calls f, turning a panic into a *PanicError and a Result that
// cannot be written into an ErrInvalidStatus failure.
func invoke(f func() (Result, error)) (res Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			res = Result{}
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	res, err = f()
	if err == nil {
		if verr := res.validate(); verr != nil {
			return Result{}, verr
		}
	}
	return res, err
}

func fallback(w http.ResponseWriter, route *Route, err error) error {
	switch {
	case errors.Is(err, ErrRouteNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil
	case errors.Is(err, ErrMethodNotAllowed):
		if route != nil {
			w.Header().Set("Allow", strings.Join(route.allowed(), ", "))
		}
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return nil
	default:
		return err
	}
}
