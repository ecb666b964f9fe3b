package entities

import (
	"fmt"
	"strings"
)

// MapSource names how a map was configured.
type MapSource string

const (
	// MapSourceDocument maps are loaded from a style document.
	MapSourceDocument MapSource = "document"
	// MapSourceCode maps are assembled layer by layer in code.
	MapSourceCode MapSource = "code"
)

func ParseMapSource(s string) (MapSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "document", "xml":
		return MapSourceDocument, nil
	case "code", "python":
		return MapSourceCode, nil
	default:
		return "", fmt.Errorf("unknown map source %q, expected xml or code", s)
	}
}

// MapImage is an encoded rendering ready to be served.
type MapImage struct {
	Source      MapSource
	ContentType string
	Width       int
	Height      int
	Data        []byte
}
