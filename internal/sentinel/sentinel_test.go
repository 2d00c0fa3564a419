package sentinel

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestEmitFraming(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	if err := e.Log("model loaded"); err != nil {
		t.Fatalf("emit: %v", err)
	}
	line := buf.String()
	if !strings.HasPrefix(line, "__LOG__:") {
		t.Fatalf("missing prefix: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("missing newline: %q", line)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "__LOG__:")), &payload); err != nil {
		t.Fatalf("json: %v", err)
	}
	if payload["message"] != "model loaded" {
		t.Fatalf("payload=%v", payload)
	}
}

func TestErrorFrameDetails(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	if err := e.Error("PORT_IN_USE", "port 8080 is already in use", map[string]any{"port": 8080}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	var payload map[string]any
	raw := strings.TrimPrefix(strings.TrimSpace(buf.String()), "__ERROR__:")
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("json: %v", err)
	}
	if payload["code"] != "PORT_IN_USE" {
		t.Fatalf("code=%v", payload["code"])
	}
	if payload["details"] == nil {
		t.Fatalf("details missing: %v", payload)
	}
}

func TestErrorFrameOmitsEmptyDetails(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	_ = e.Error("MODEL_LOAD_ERROR", "boom", nil)
	if strings.Contains(buf.String(), "details") {
		t.Fatalf("details present: %q", buf.String())
	}
}

func TestConcurrentEmitsDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Request(RequestEntry{ID: "r", Method: "POST", Path: "/predict", StatusCode: 200, BatchSize: 1})
		}()
	}
	wg.Wait()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("lines=%d", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "__REQUEST__:") {
			t.Fatalf("bad line: %q", l)
		}
		var entry RequestEntry
		if err := json.Unmarshal([]byte(strings.TrimPrefix(l, "__REQUEST__:")), &entry); err != nil {
			t.Fatalf("json: %v line=%q", err, l)
		}
	}
}
