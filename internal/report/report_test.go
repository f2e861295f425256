package report

import (
	"errors"
	"testing"
	"time"
)

func TestNew_EmptyDSNDisabled(t *testing.T) {
	t.Parallel()
	r, err := New("")
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	if r.enabled {
		t.Error("reporter enabled without a DSN")
	}

	// Disabled reporters must be safe to use.
	r.Capture(errors.New("upstream failed"))
	r.Capture(nil)
	r.Flush(time.Millisecond)
}

func TestCapture_NilReceiver(t *testing.T) {
	t.Parallel()
	var r *Reporter
	r.Capture(errors.New("boom"))
	r.Flush(time.Millisecond)
}
