package bookcoder

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// pageCache keeps recently used fixed-size pieces of the book in memory.
// Book codes produced with small windows or with reset-at-window-end land
// their offsets in a narrow range, so a handful of resident pages absorbs
// nearly every lookup.
type pageCache struct {
	pageSize int
	pages    *lru.Cache[int64, []byte]
	fetch    func(start int64, dst []byte) (int, error)
}

// newPageCache builds a cache of pageCount pages of pageSize bytes each.
// fetch reads page contents from the book; it is only called on a miss.
func newPageCache(pageSize, pageCount int, fetch func(int64, []byte) (int, error)) (*pageCache, error) {
	if pageSize <= 0 || pageCount <= 0 {
		return nil, ErrInvalidBufferSize.WithMessage(fmt.Sprintf(
			"page cache geometry %d x %d", pageCount, pageSize))
	}
	pages, err := lru.New[int64, []byte](pageCount)
	if err != nil {
		return nil, err
	}
	return &pageCache{pageSize: pageSize, pages: pages, fetch: fetch}, nil
}

func (c *pageCache) byteAt(offset int64) (byte, error) {
	index := offset / int64(c.pageSize)
	page, ok := c.pages.Get(index)
	if !ok {
		page = make([]byte, c.pageSize)
		n, err := c.fetch(index*int64(c.pageSize), page)
		if err != nil {
			return 0, err
		}
		page = page[:n]
		c.pages.Add(index, page)
	}
	return page[offset%int64(c.pageSize)], nil
}
