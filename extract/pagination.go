package extract

import (
	"github.com/aluiziolira/go-scrape-products/models"
)

// ReadPagination pulls paging hints out of a listing payload. It first
// probes the known pagination wrapper keys, then deep-searches for the
// first object carrying a total-pages or next-page alias. TotalPages
// defaults to 1 so an unreadable payload terminates its sequence instead
// of paginating blind.
func ReadPagination(root any) models.Pagination {
	pag := models.Pagination{TotalPages: 1}

	node := paginationNode(root)
	if node == nil {
		return pag
	}

	if total, ok := countAt(node, totalPagesKeys); ok && total >= 1 {
		pag.TotalPages = total
	}
	pag.NextURL = stringAt(node, nextPageKeys)
	return pag
}

func paginationNode(root any) map[string]any {
	if obj, ok := root.(map[string]any); ok {
		for _, key := range paginationKeys {
			if wrapper, ok := obj[key].(map[string]any); ok {
				return wrapper
			}
		}
	}
	return findFirst(root, 0, func(obj map[string]any) bool {
		if _, ok := numberAt(obj, totalPagesKeys); ok {
			return true
		}
		return stringAt(obj, nextPageKeys) != ""
	})
}
