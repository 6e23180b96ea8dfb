package logruslog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/goliatone/go-catalog-cache/cache"
)

func TestLogger_Levels(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(logrus.NewEntry(base))

	l.Debug("cache invalidated", cache.Fields{"tags": []string{"products"}})
	l.Info("cache cleared", nil)
	l.Warn("cache set failed", cache.Fields{"key": "products:count:"})
	l.Error("cache key build failed", nil)

	entries := hook.AllEntries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantLevels := []logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d: expected %s, got %s", i, wantLevels[i], e.Level)
		}
	}
	if got := hook.LastEntry().Message; got != "cache key build failed" {
		t.Fatalf("unexpected last message %q", got)
	}
	if entries[2].Data["key"] != "products:count:" {
		t.Fatalf("unexpected key field %v", entries[2].Data["key"])
	}
}

func TestNewJSON(t *testing.T) {
	if _, err := NewJSON(&bytes.Buffer{}, "chatty"); err == nil {
		t.Fatal("expected error for unknown level")
	}

	var buf bytes.Buffer
	l, err := NewJSON(&buf, "info")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Debug("dropped", nil)
	l.Info("cache cleared", cache.Fields{"prefix": "catalog"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "cache cleared" || line["prefix"] != "catalog" || line["level"] != "info" {
		t.Fatalf("unexpected line %v", line)
	}
}

func TestNew_NilEntry(t *testing.T) {
	New(nil).Warn("ignored", cache.Fields{"a": 1})
}
