package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If no error or only nil errors were provided, nil is returned.
//
// Returned error implements unpacker interface and Is method of a root error
// matches if any of the clubbed errors is of that kind.
func Append(errs ...error) error {
	var res multiErr
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if m, ok := e.(multiErr); ok {
			res = append(res, m...)
		} else {
			res = append(res, e)
		}
	}
	if len(res) == 0 {
		return nil
	}
	return res
}

// multiErr is a default implementation of a multi error. Nested multi errors
// are flattened by Append.
type multiErr []error

func (errs multiErr) Error() string {
	if len(errs) == 1 {
		return errs[0].Error()
	}

	points := make([]string, len(errs))
	for i, err := range errs {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s", len(errs), strings.Join(points, "\n\t"))
}

// Unpack implements unpacker interface.
func (errs multiErr) Unpack() []error {
	return errs
}

// unpacker is implemented by errors that contain more than one error
// instance.
type unpacker interface {
	Unpack() []error
}
