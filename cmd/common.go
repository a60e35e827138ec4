package cmd

import (
	"fmt"
	"os"

	"github.com/dirsvc/dspasswd/internal/directory"
)

// Progname prefixes every diagnostic. main sets it from argv[0].
var Progname = "dspasswd"

// HandleError prints err in the program's diagnostic format and exits
// non-zero. Structured directory errors print as
// "<progname>: <description>  <reason>  <recovery>".
func HandleError(err error) {
	if diag, ok := directory.DiagnosticOf(err); ok {
		fmt.Fprintf(os.Stderr, "%s: %s\n", Progname, diag)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", Progname, err)
	os.Exit(1)
}
