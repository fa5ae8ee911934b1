package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriter_PlainIcons(t *testing.T) {
	var buf bytes.Buffer
	w := Plain(&buf)

	w.Successf("indexed %s", "a.txt")
	w.Warnf("skipped %s", "b.png")
	w.Errorf("failed %s", "c.txt")
	w.Infof("done")

	got := buf.String()
	for _, want := range []string{"✓ indexed a.txt", "! skipped b.png", "✗ failed c.txt", "done"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Error("plain writer must not emit ANSI escapes")
	}
}

func TestWriter_NonFileDestinationHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Successf("ok")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("buffer destination must not be colored")
	}
}
