package runtime

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
)

// Snapshot is a parsed UI hierarchy dump. It is read-only once parsed.
type Snapshot struct {
	root *xmlquery.Node
}

// ParseSnapshot parses a hierarchy dump.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if !hasElement(root) {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedSnapshot)
	}
	return &Snapshot{root: root}, nil
}

func hasElement(doc *xmlquery.Node) bool {
	if doc == nil {
		return false
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

// navigator returns a fresh cursor positioned at the document root.
func (s *Snapshot) navigator() *xmlquery.NodeNavigator {
	return xmlquery.CreateXPathNavigator(s.root)
}
