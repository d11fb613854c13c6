package compiler

import (
	"fmt"
	"strings"
)

// shellMeta mirrors the teacher's internal/build/compiler.go
// validateArgument denylist: both backends shell out to an external
// binary the same way the teacher shells out to templ, so the same
// command-injection guard applies.
var shellMeta = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}

func validateArgument(arg string) error {
	for _, c := range shellMeta {
		if strings.Contains(arg, c) {
			return fmt.Errorf("argument %q contains disallowed character %q", arg, c)
		}
	}
	return nil
}

func validateArguments(args []string) error {
	for _, a := range args {
		if err := validateArgument(a); err != nil {
			return err
		}
	}
	return nil
}
