package metadata

import (
	"strings"

	"github.com/beevik/etree"
)

// isoNamespaces maps the prefixes used in ISO 19139 paths to their namespace URIs.
var isoNamespaces = map[string]string{
	"gmd":   "http://www.isotc211.org/2005/gmd",
	"gco":   "http://www.isotc211.org/2005/gco",
	"gts":   "http://www.isotc211.org/2005/gts",
	"srv":   "http://www.isotc211.org/2005/srv",
	"gml":   "http://www.opengis.net/gml",
	"xlink": "http://www.w3.org/1999/xlink",
	"xsi":   "http://www.w3.org/2001/XMLSchema-instance",
}

// parseRoot returns the document element of data, or an empty element when data is empty.
func parseRoot(data []byte) (*etree.Element, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return etree.NewElement("metadata"), nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return etree.NewElement("metadata"), nil
	}
	return root, nil
}

// findPath returns the elements reached from el by a "/"-separated path. A step written
// "prefix:name" matches elements in that prefix's namespace (resolved through ns); a bare
// step matches elements without a namespace. Names compare case-insensitively.
func findPath(el *etree.Element, path string, ns map[string]string) []*etree.Element {
	current := []*etree.Element{el}
	for _, step := range strings.Split(path, "/") {
		uri, local := "", step
		if i := strings.IndexByte(step, ':'); i != -1 {
			uri, local = ns[step[:i]], step[i+1:]
		}
		var next []*etree.Element
		for _, parent := range current {
			for _, child := range parent.ChildElements() {
				if strings.EqualFold(child.Tag, local) && child.NamespaceURI() == uri {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// text returns the trimmed text of the first element at path, "" when absent.
func text(el *etree.Element, path string, ns map[string]string) string {
	found := findPath(el, path, ns)
	if len(found) == 0 {
		return ""
	}
	return strings.TrimSpace(found[0].Text())
}
