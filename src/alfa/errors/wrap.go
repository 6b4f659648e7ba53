package errors

import (
	stderrors "errors"
	"io"

	"golang.org/x/xerrors"
)

var (
	As = stderrors.As
	Is = stderrors.Is
)

// Wrap adds frame information to err via xerrors, preserving Unwrap.
// Call sites follow the usual convention:
//
//	if err != nil {
//	    err = errors.Wrap(err)
//	    return err
//	}
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	return xerrors.Errorf("%w", err)
}

// Wrapf is Wrap with an additional format string prepended to the chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	args = append(args, err)

	return xerrors.Errorf(format+": %w", args...)
}

// Errorf constructs a new error carrying frame information, same
// semantics as fmt.Errorf but routed through xerrors so %w chains stay
// walkable with errors.As/errors.Is.
func Errorf(format string, args ...any) error {
	return xerrors.Errorf(format, args...)
}

// DeferredCloser closes c and folds any close error into *err without
// clobbering an existing error, for `defer errors.DeferredCloser(&err, f)`
// call sites in writer/reader constructors.
func DeferredCloser(err *error, c io.Closer) {
	closeErr := c.Close()
	if closeErr == nil {
		return
	}

	if *err == nil {
		*err = Wrap(closeErr)
	}
}
