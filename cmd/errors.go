/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// PrintError prints an error message without exiting. With --verbose the
// underlying technical error is printed instead of the friendly one.
func PrintError(userMsg string, technicalErr error) {
	if viper.GetBool("verbose") && technicalErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", technicalErr)
		return
	}
	fmt.Fprintln(os.Stderr, userMsg)
}

// reportedError marks an error that has already been shown to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func alreadyReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
