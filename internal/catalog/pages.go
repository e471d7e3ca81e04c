package catalog

import (
	"encoding/json"
	"strconv"
)

// PageMarker is one entry of a compact pagination control: a page number or
// an ellipsis.
type PageMarker struct {
	Page     int
	Ellipsis bool
}

// Ellipsis is the gap marker.
var Ellipsis = PageMarker{Ellipsis: true}

func (m PageMarker) String() string {
	if m.Ellipsis {
		return "..."
	}
	return strconv.Itoa(m.Page)
}

// MarshalJSON encodes a page as a number and an ellipsis as "...".
func (m PageMarker) MarshalJSON() ([]byte, error) {
	if m.Ellipsis {
		return []byte(`"..."`), nil
	}
	return []byte(strconv.Itoa(m.Page)), nil
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (m *PageMarker) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = Ellipsis
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = PageMarker{Page: n}
	return nil
}

func pages(nums ...int) []PageMarker {
	out := make([]PageMarker, 0, len(nums))
	for _, n := range nums {
		if n == 0 {
			out = append(out, Ellipsis)
			continue
		}
		out = append(out, PageMarker{Page: n})
	}
	return out
}

// GeneratePageNumbers builds the page list shown under a listing. Up to
// five pages are listed in full; beyond that the first and last page stay
// visible around a window near currentPage.
func GeneratePageNumbers(currentPage, totalPages int) []PageMarker {
	if totalPages <= 5 {
		out := make([]PageMarker, 0, totalPages)
		for i := 1; i <= totalPages; i++ {
			out = append(out, PageMarker{Page: i})
		}
		return out
	}

	switch {
	case currentPage <= 3:
		return pages(1, 2, 3, 4, 0, totalPages)
	case currentPage >= totalPages-2:
		return pages(1, 0, totalPages-3, totalPages-2, totalPages-1, totalPages)
	default:
		return pages(1, 0, currentPage-1, currentPage, currentPage+1, 0, totalPages)
	}
}
