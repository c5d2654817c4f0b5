// Package weberr decorates errors with the HTTP response and log fields the
// error middleware uses to report them.
package weberr

import "errors"

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

type response struct {
	body   any
	status int
}

// decorated carries either a response or log fields for the error it wraps.
type decorated struct {
	error
	resp   *response
	fields map[string]any
}

func (d *decorated) Unwrap() error { return d.error }

func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &decorated{error: err, resp: &response{body, status}}
	}
}

// WithMessage replaces the body of the closest response with msg, keeping
// its status.
func WithMessage(msg string) Opt {
	return func(err error) error {
		_, status, ok := Response(err)
		if !ok {
			return err
		}
		return &decorated{error: err, resp: &response{&ErrorResponse{msg}, status}}
	}
}

func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &decorated{error: err, fields: fields}
	}
}

// Response returns the outermost response attached to err.
func Response(err error) (body any, status int, ok bool) {
	var d *decorated
	for errors.As(err, &d) {
		if d.resp != nil {
			return d.resp.body, d.resp.status, true
		}
		err = d.error
	}
	return nil, 0, false
}

// Fields collects the log fields attached anywhere in err. Outer values win
// over inner ones for the same key.
func Fields(err error) (map[string]any, bool) {
	var out map[string]any
	var d *decorated
	for errors.As(err, &d) {
		for k, v := range d.fields {
			if out == nil {
				out = make(map[string]any)
			}
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
		err = d.error
	}
	return out, out != nil
}
