package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarkdownToText(t *testing.T) {
	src := "# Storing embeddings\n\nRedis can store **vectors** and\nsearch them.\n\n- one\n- two\n\n```go\nfmt.Println(\"hi\")\n```\n"

	got := MarkdownToText([]byte(src))

	for _, want := range []string{"Storing embeddings", "Redis can store vectors and\nsearch them.", "one\ntwo", `fmt.Println("hi")`} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "**") || strings.Contains(got, "```") || strings.Contains(got, "# ") {
		t.Errorf("markdown syntax leaked into text: %q", got)
	}
}

func TestParseFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte{0x89}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFile(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"4300-lock-room.txt":    "How can I lock my room?\nUse the key card.",
		"nested/4301-wifi.md":   "## Wifi\n\nThe password is on the desk.",
		"empty.txt":             "   ",
		"notes.png":             "binary",
		"nested/deeper/zzz.txt": "last",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := LoadDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d: %+v", len(docs), docs)
	}
	if docs[0].Title != "4300-lock-room" || !strings.Contains(docs[0].Text, "lock my room") {
		t.Errorf("unexpected first document %+v", docs[0])
	}
	if docs[1].Title != "4301-wifi" || docs[1].Text != "Wifi\n\nThe password is on the desk." {
		t.Errorf("unexpected markdown document %+v", docs[1])
	}
	if docs[2].Title != "zzz" {
		t.Errorf("unexpected last document %+v", docs[2])
	}
}
