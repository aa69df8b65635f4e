package chat

import (
	"strings"
	"testing"
)

func TestRenderTextSystemBold(t *testing.T) {
	m := Message{Sender: SenderSystem, Text: "Type **STATUS** to refresh."}
	out := RenderText(m)
	if strings.Contains(out, "**") {
		t.Errorf("paired markers must be consumed, got %q", out)
	}
	if !strings.Contains(out, "STATUS") {
		t.Errorf("span text lost, got %q", out)
	}
}

func TestRenderTextUserVerbatim(t *testing.T) {
	m := Message{Sender: SenderUser, Text: "my **name** is RESET"}
	if out := RenderText(m); out != m.Text {
		t.Errorf("user text must render verbatim, got %q", out)
	}
}

func TestRenderTextUnpairedMarker(t *testing.T) {
	m := Message{Sender: SenderSystem, Text: "half **open marker"}
	out := RenderText(m)
	if !strings.Contains(out, "**") {
		t.Errorf("unpaired marker must stay literal, got %q", out)
	}
}

func TestRenderTextMultipleSpans(t *testing.T) {
	m := Message{Sender: SenderSystem, Text: "Type **UPLOAD**, **IOT** or **HELP**."}
	out := RenderText(m)
	if strings.Contains(out, "**") {
		t.Errorf("all paired markers must be consumed, got %q", out)
	}
	for _, word := range []string{"UPLOAD", "IOT", "HELP"} {
		if !strings.Contains(out, word) {
			t.Errorf("span %q lost in %q", word, out)
		}
	}
}
