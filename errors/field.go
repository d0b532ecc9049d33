package errors

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Field returns an error that attributes err to a single field of the
// validated value. It returns nil if err is nil.
//
// The field is a dot separated path in Go naming. Elements of a list are
// addressed by their index, for example Actions.1.MethodName.
func Field(path string, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{
		parent: err,
		path:   path,
		desc:   description,
	}
}

// AppendField adds a field error to the collection of errors. Both
// arguments may be nil.
func AppendField(errs error, path string, err error) error {
	return Append(errs, Field(path, err, ""))
}

type fieldError struct {
	parent error
	path   string
	desc   string
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.path, e.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", e.path, e.desc, e.parent)
}

func (e *fieldError) Cause() error {
	return e.parent
}

// Field implements fielder interface.
func (e *fieldError) Field() string {
	return e.path
}

// FieldErrors returns all errors attributed to the given field path. Field
// errors nested in a matching one are not included.
func FieldErrors(err error, path string) []error {
	var res []error
	walkFields(err, func(e error, p string) bool {
		if p != path {
			return false
		}
		res = append(res, e)
		return true
	})
	return res
}

// Fields returns the sorted set of field paths err carries errors for.
func Fields(err error) []string {
	seen := make(map[string]struct{})
	var res []string
	walkFields(err, func(_ error, p string) bool {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			res = append(res, p)
		}
		return false
	})
	sort.Strings(res)
	return res
}

// walkFields calls fn for every field error found in err. Children of a
// field error are visited unless fn returns true.
func walkFields(err error, fn func(error, string) bool) {
	for !isNilErr(err) {
		if f, ok := err.(fielder); ok {
			if fn(err, f.Field()) {
				return
			}
		}
		if u, ok := err.(unpacker); ok {
			// Unpack already returns every child, including the
			// cause.
			for _, e := range u.Unpack() {
				walkFields(e, fn)
			}
			return
		}
		c, ok := err.(causer)
		if !ok {
			return
		}
		err = c.Cause()
	}
}

type fielder interface {
	Field() string
}
