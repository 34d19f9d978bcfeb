// Package banner prints the startup banner.
package banner

import (
	"fmt"
	"io"
)

// Version is the service version reported in the banner and the health check.
const Version = "0.3.0"

// Print writes the banner to w.
func Print(w io.Writer) {
	banner := `
    _    _           _    ____           _
   / \  | | ___ _ __| |_ / ___|__ _  ___| |__   ___
  / _ \ | |/ _ \ '__| __| |   / _' |/ __| '_ \ / _ \
 / ___ \| |  __/ |  | |_| |__| (_| | (__| | | |  __/
/_/   \_\_|\___|_|   \__|\____\__,_|\___|_| |_|\___|
    v%s - session alert cache
`
	fmt.Fprintf(w, banner, Version)
	fmt.Fprintln(w, "------------------------------------------------")
}
