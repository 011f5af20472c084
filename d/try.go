// Copyright 2016 Attic Labs, Inc. All rights reserved.
// Licensed under the Apache License, version 2.0:
// http://www.apache.org/licenses/LICENSE-2.0

// Package d holds small assertion helpers used at invariant boundaries
// throughout the indexing core. A panic here always means corruption or a
// programming error, never a recoverable runtime condition - those are
// reported as ordinary errors.
package d

import "fmt"

// PanicIfError panics with err if err is non-nil.
func PanicIfError(err error) {
	if err != nil {
		panic(err)
	}
}

// PanicIfTrue panics if b is true.
func PanicIfTrue(b bool, args ...interface{}) {
	if b {
		panic(format(args...))
	}
}

// PanicIfFalse panics if b is false.
func PanicIfFalse(b bool, args ...interface{}) {
	if !b {
		panic(format(args...))
	}
}

// PanicIfNotType panics if want and got do not share a dynamic type.
func PanicIfNotType(want, got interface{}) {
	if fmt.Sprintf("%T", want) != fmt.Sprintf("%T", got) {
		panic(fmt.Sprintf("type mismatch: want %T, got %T", want, got))
	}
}

func format(args ...interface{}) string {
	if len(args) == 0 {
		return "invariant violated"
	}
	if s, ok := args[0].(string); ok {
		return fmt.Sprintf(s, args[1:]...)
	}
	return fmt.Sprint(args...)
}

type wrappedError struct {
	msg string
	err error
}

func (w wrappedError) Error() string { return w.msg + ": " + w.err.Error() }
func (w wrappedError) Unwrap() error { return w.err }

// Wrap attaches msg as context to err, returning nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return wrappedError{msg, err}
}

// Unwrap returns the innermost error wrapped by Wrap, or err itself.
func Unwrap(err error) error {
	for {
		w, ok := err.(wrappedError)
		if !ok {
			return err
		}
		err = w.err
	}
}
