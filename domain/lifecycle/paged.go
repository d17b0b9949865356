package lifecycle

// Page 分页结果容器
type Page[T any] struct {
	Items      []T `json:"data"`
	PageIndex  int `json:"page"`
	PageSize   int `json:"perPage"`
	TotalPages int `json:"totalPages"`
}

// NewPage 按总记录数计算总页数：ceil(total / pageSize)，pageSize 为 0 时为 0。
func NewPage[T any](items []T, pageIndex, pageSize int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}
}

// EmptyPage 没有任何条目的分页
func EmptyPage[T any](pageIndex, pageSize int) Page[T] {
	return NewPage[T](nil, pageIndex, pageSize, 0)
}

// TotalPages ceil(total / pageSize)
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// PageBounds 返回第 pageIndex 页在 total 条记录中的 [start, end) 区间，超出范围时 start == end。
func PageBounds(total, pageIndex, pageSize int) (start, end int) {
	if pageSize <= 0 || pageIndex < 0 {
		return 0, 0
	}
	if pageIndex >= TotalPages(int64(total), pageSize) {
		return total, total
	}
	start = pageIndex * pageSize
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

// MapPage 只转换条目类型：页码、页大小与总页数原样保留，条目顺序与数量不变，源分页不被修改。
func MapPage[T any, R any](p Page[T], f func(T) R) Page[R] {
	items := make([]R, len(p.Items))
	for i, item := range p.Items {
		items[i] = f(item)
	}
	return Page[R]{
		Items:      items,
		PageIndex:  p.PageIndex,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}
