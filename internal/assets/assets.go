// Package assets embeds the browser client that drives jsblock widgets
// over the server's WebSocket.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed client/*
var clientFS embed.FS

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetClientJS returns the browser JavaScript
func GetClientJS() ([]byte, error) {
	return clientFS.ReadFile("client/jsblock-client.js")
}

// GetClientCSS returns the widget stylesheet
func GetClientCSS() ([]byte, error) {
	return clientFS.ReadFile("client/jsblock-client.css")
}
