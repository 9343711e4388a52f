package assets

import (
	"io/fs"
	"strings"
	"testing"
)

func TestGetClientJS(t *testing.T) {
	data, err := GetClientJS()
	if err != nil {
		t.Fatalf("GetClientJS failed: %v", err)
	}
	js := string(data)
	for _, want := range []string{"/ws?page=", "blockID", "jsblock-container", "reload"} {
		if !strings.Contains(js, want) {
			t.Errorf("client JS does not mention %q", want)
		}
	}
}

func TestGetClientCSS(t *testing.T) {
	data, err := GetClientCSS()
	if err != nil {
		t.Fatalf("GetClientCSS failed: %v", err)
	}
	css := string(data)
	for _, class := range []string{".jsblock-container", ".jsblock-console", ".jsblock-console-run", ".jsblock-reset", ".placeholder", ".disabled"} {
		if !strings.Contains(css, class) {
			t.Errorf("client CSS has no rule for %s", class)
		}
	}
}

func TestClientFS(t *testing.T) {
	entries, err := fs.ReadDir(ClientFS(), ".")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if strings.Join(names, ",") != "jsblock-client.css,jsblock-client.js" {
		t.Errorf("unexpected client files: %v", names)
	}
}
