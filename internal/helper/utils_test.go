package helper

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestArticleID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://thola.freshdesk.com/support/solutions/articles/4300-lock-room", "4300-lock-room"},
		{"https://thola.freshdesk.com/support/solutions/articles/4300/", "4300"},
		{"https://example.com/", "example.com"},
		{"https://example.com/a/b?x=1", "b"},
	}
	for _, tt := range tests {
		if got := ArticleID(tt.url); got != tt.want {
			t.Errorf("ArticleID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestCreateFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := CreateFolder(dir); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be a directory", dir)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hi", 5); got != "hi" {
		t.Errorf("got %q", got)
	}
}

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateUUID()
	if a == b || len(a) != 36 {
		t.Errorf("unexpected ids %q %q", a, b)
	}
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	if err := PrettyPrint(&buf, map[string]int{"chunks": 3}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"chunks\": 3\n}\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
	var v map[string]int
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil || v["chunks"] != 3 {
		t.Errorf("output is not the JSON value: %v %v", v, err)
	}

	if err := PrettyPrint(&buf, make(chan int)); err == nil {
		t.Error("expected an error for a value json cannot encode")
	}
}
