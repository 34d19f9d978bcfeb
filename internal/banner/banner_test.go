package banner

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf)

	if !strings.Contains(buf.String(), "v"+Version) {
		t.Errorf("banner does not contain version %q:\n%s", Version, buf.String())
	}
}
