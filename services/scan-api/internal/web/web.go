package web

import _ "embed"

// IndexHTML is the upload page: a file input, an analyze button and the status element.
//
//go:embed index.html
var IndexHTML []byte
