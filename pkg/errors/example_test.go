// Package errors provides examples of structured error handling in dta2parquet.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/dta2parquet/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeStructural, "expected tag <data>").
		WithDetail("offset", 1024)

	fmt.Println(err.Error())

	// Output:
	// structural_parse: expected tag <data>
}

// ExampleWrap shows how wrapping keeps the original type reachable.
func ExampleWrap() {
	inner := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeStructural, "truncated variable labels")
	outer := errors.Wrap(inner, errors.ErrorTypeInternal, "metadata stage failed")

	if errors.IsType(outer, errors.ErrorTypeStructural) {
		fmt.Println("structural error in chain")
	}
	if errors.IsInputError(outer) {
		fmt.Println("caused by the input file")
	}

	// Output:
	// structural error in chain
	// caused by the input file
}

// ExampleNewf demonstrates formatted messages.
func ExampleNewf() {
	err := errors.Newf(errors.ErrorTypeUnknownTypeCode, "variable %d has type code %d", 3, 40000)
	fmt.Println(err)
	fmt.Println(errors.IsInputError(errors.New(errors.ErrorTypeConfig, "bad level")))

	// Output:
	// unknown_type_code: variable 3 has type code 40000
	// false
}
