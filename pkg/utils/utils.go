package utils

import (
	"fmt"
	"strconv"
)

// PageConfigFromStrings parses 1-based page and page size query values,
// falling back to the given default size.
func PageConfigFromStrings(page, size string, defaultSize int) (pageNumber int, pageSize int, err error) {
	pageSize = defaultSize
	if size != "" {
		pageSize, err = strconv.Atoi(size)
		if err != nil || pageSize < 1 {
			return 0, 0, fmt.Errorf("pageSize is not a valid integer")
		}
	}
	pageNumber = 1
	if page != "" {
		pageNumber, err = strconv.Atoi(page)
		if err != nil || pageNumber < 1 {
			return 0, 0, fmt.Errorf("page is not a valid integer")
		}
	}
	return pageNumber, pageSize, nil
}
