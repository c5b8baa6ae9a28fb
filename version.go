package staffgate

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the release version of staffgate.
var Version = strings.TrimSpace(version)
