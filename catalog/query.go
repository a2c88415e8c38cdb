package catalog

import (
	"math"
	"strings"

	"github.com/nirmalhandloom/storebackend/config"
	"github.com/nirmalhandloom/storebackend/utils"
)

// ListParams are the normalized inputs of a catalog listing.
type ListParams struct {
	Keyword string
	Page    int
	Limit   int
	ShowAll bool
}

// ParseListParams turns raw query values into ListParams. Malformed or
// non-positive numbers fall back to defaults, limit is capped at
// cfg.MaxLimit and page at the last page whose offset fits in an int64.
// showAll is only honored for administrators.
func ParseListParams(keyword, page, limit, showAll string, isAdmin bool, cfg config.CatalogConfig) ListParams {
	p := ListParams{
		Keyword: strings.TrimSpace(keyword),
		Page:    utils.ParseIntDefault(page, 1),
		Limit:   utils.ParseIntDefault(limit, cfg.DefaultLimit),
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = cfg.DefaultLimit
	}
	if p.Limit > cfg.MaxLimit {
		p.Limit = cfg.MaxLimit
	}
	if last := maxPage(p.Limit); int64(p.Page) > last {
		p.Page = int(last)
	}
	if isAdmin {
		if b, err := utils.ParseBoolQuery(showAll); err == nil && b != nil {
			p.ShowAll = *b
		}
	}
	return p
}

func (p ListParams) query() ProductQuery {
	page, limit := int64(p.Page), int64(p.Limit)
	if page < 1 {
		page = 1
	}
	if last := maxPage(p.Limit); page > last {
		page = last
	}
	return ProductQuery{
		Keyword:    p.Keyword,
		ActiveOnly: !p.ShowAll,
		Skip:       limit * (page - 1),
		Limit:      limit,
	}
}

// maxPage is the highest page whose skip (page-1)*limit does not overflow.
func maxPage(limit int) int64 {
	if limit < 1 {
		return math.MaxInt64
	}
	last := int64(math.MaxInt64) / int64(limit)
	if limit > 1 {
		last++
	}
	if last > math.MaxInt {
		last = math.MaxInt
	}
	return last
}

// pageCount is ceil(total/limit).
func pageCount(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}
