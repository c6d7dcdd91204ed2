package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"best running shoes": "best_running_shoes_SERP.html",
		"  padded  ":         "padded_SERP.html",
		"a/b":                "a_b_SERP.html",
		"c++ vs go":          "c++_vs_go_SERP.html",
	}
	for in, want := range cases {
		got, err := FileName(in)
		if err != nil {
			t.Errorf("FileName(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("FileName(%q): expected %s, got %s", in, want, got)
		}
	}

	if _, err := FileName("   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestDir_LazyCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "saved_serp_html")
	d := New(root)

	if d.Exists() {
		t.Fatal("directory must not exist before the first save")
	}

	p, err := d.Save("golang tutorial", []byte("<html>serp</html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != filepath.Join(root, "golang_tutorial_SERP.html") {
		t.Errorf("unexpected path %s", p)
	}
	if !d.Exists() {
		t.Fatal("directory should exist after save")
	}

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if string(data) != "<html>serp</html>" {
		t.Errorf("unexpected snapshot content %q", data)
	}

	// Same query overwrites.
	if _, err := d.Save("golang tutorial", []byte("v2")); err != nil {
		t.Fatalf("unexpected error on overwrite: %v", err)
	}
	data, _ = os.ReadFile(p)
	if string(data) != "v2" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestDir_DefaultPath(t *testing.T) {
	if got := New("").Path(); got != DefaultDir {
		t.Errorf("expected %s, got %s", DefaultDir, got)
	}
}
