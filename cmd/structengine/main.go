// Command structengine captures tasks from phrases and transcripts and
// answers scheduling questions over a workspace item file.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/msageha/structengine/internal/catalog"
)

const version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ve *catalog.ValidationErrors
		if errors.As(err, &ve) {
			fmt.Fprint(os.Stderr, ve.FormatStderr())
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
