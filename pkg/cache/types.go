// Doccache keeps the expensive artifacts of a document viewer in memory: search results, extracted page text,
// search highlights, rendered page images and thumbnails. Every cached item carries one of five fixed content
// types; limits, statistics and eviction policies are all tracked per type.

package cache

import "fmt"

// Type tags a cache entry with the kind of document artifact it holds.
type Type uint8

const (
	SearchResult Type = iota
	PageText
	SearchHighlight
	PdfRender
	Thumbnail
)

// allTypes lists every cache type in its fixed enumeration order. This order defines both the processing order
// of per-type eviction passes and which type tags bulk eviction notifications.
var allTypes = [...]Type{SearchResult, PageText, SearchHighlight, PdfRender, Thumbnail}

// AllTypes returns the five cache types in their fixed enumeration order.
func AllTypes() []Type {
	return allTypes[:]
}

// String returns the stable textual name of the type, also used as a metric label and config key.
func (t Type) String() string {
	switch t {
	case SearchResult:
		return "search_result"
	case PageText:
		return "page_text"
	case SearchHighlight:
		return "search_highlight"
	case PdfRender:
		return "pdf_render"
	case Thumbnail:
		return "thumbnail"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType maps a textual type name back to its Type tag.
func ParseType(name string) (Type, error) {
	for _, t := range allTypes {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown cache type %q", name)
}
