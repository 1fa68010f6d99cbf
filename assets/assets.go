// Package assets holds the files embedded in the binaries.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/*
var FS embed.FS
