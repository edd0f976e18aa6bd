package device

import (
	"encoding/xml"
	"strings"

	"github.com/pkg/errors"
)

// xmlValues extracts the first text value of each named tag from an ISAPI
// response, in tag order. Devices vary in namespaces and element nesting, so
// this scans tokens by local name instead of binding a schema. A tag with no
// occurrence is an error.
func xmlValues(doc string, tags []string) ([]string, error) {
	found := make(map[string]string, len(tags))
	wanted := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		wanted[tag] = struct{}{}
	}

	decoder := xml.NewDecoder(strings.NewReader(doc))
	var current string
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if _, ok := wanted[t.Name.Local]; ok {
				current = t.Name.Local
			} else {
				current = ""
			}
		case xml.CharData:
			if current == "" {
				continue
			}
			if _, seen := found[current]; seen {
				continue
			}
			if text := strings.TrimSpace(string(t)); text != "" {
				found[current] = text
			}
		case xml.EndElement:
			current = ""
		}
	}

	values := make([]string, len(tags))
	for i, tag := range tags {
		val, ok := found[tag]
		if !ok {
			return nil, errors.Errorf("device: tag %q not found in response", tag)
		}
		values[i] = val
	}
	return values, nil
}
