// Package assets embeds static files shared by the web pages and the exports.
package assets

import _ "embed"

//go:embed icon.svg
var Icon []byte
