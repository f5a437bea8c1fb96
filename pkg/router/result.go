package router

import (
	"fmt"
	"io"
	"net/http"
)

// Result is what a Handler or ErrorHandler hands back to the App.
// The zero value is Written.
type Result struct {
	apply  bool
	status int
	body   string
}

// Written reports that the handler has already produced the full response.
func Written() Result {
	return Result{}
}

// Respond asks the App to write status and body.
func Respond(status int, body string) Result {
	return Result{apply: true, status: status, body: body}
}

// Applies reports whether the App must write the response.
func (r Result) Applies() bool { return r.apply }

func (r Result) Status() int { return r.status }

func (r Result) Body() string { return r.body }

// validate rejects a status net/http would refuse to write.
func (r Result) validate() error {
	if !r.apply {
		return nil
	}
	if r.status < 100 || r.status > 999 {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, r.status)
	}
	return nil
}

func (r Result) writeTo(w http.ResponseWriter) error {
	if !r.apply {
		return nil
	}
	if err := r.validate(); err != nil {
		return err
	}

	w.WriteHeader(r.status)
	if _, err := io.WriteString(w, r.body); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}
