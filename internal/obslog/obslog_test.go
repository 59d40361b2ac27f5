package obslog_test

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/argus-dev/argus/internal/obslog"
)

func captureLog(t *testing.T, fn func()) string {
	t.Helper()
	orig := log.Writer()
	origFlags := log.Flags()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(orig)
		log.SetFlags(origFlags)
	})

	fn()
	return buf.String()
}

func TestInfof_PrefixesWithComponent(t *testing.T) {
	out := captureLog(t, func() {
		obslog.New("reconcile").Infof("tick %d", 3)
	})
	if !strings.Contains(out, "[reconcile] tick 3") {
		t.Errorf("got %q", out)
	}
}

func TestWarnf_PrefixesWithComponentAndWarning(t *testing.T) {
	out := captureLog(t, func() {
		obslog.New("httpapi").Warnf("ws upgrade failed: %v", "boom")
	})
	if !strings.Contains(out, "[httpapi] warning: ws upgrade failed: boom") {
		t.Errorf("got %q", out)
	}
}

func TestErrorf_PrefixesWithComponentAndError(t *testing.T) {
	out := captureLog(t, func() {
		obslog.New("store").Errorf("corrupt state: %v", "oops")
	})
	if !strings.Contains(out, "[store] error: corrupt state: oops") {
		t.Errorf("got %q", out)
	}
}
