package utils

import "strconv"

// Page 分页结果
type Page struct {
	Number     int // 当前页，从 1 开始
	Size       int
	Total      int64
	TotalPages int
}

// Paginate 宽松的页码解析：非数字返回第 1 页，超出范围返回最后一页
func Paginate(raw string, size int, total int64) Page {
	if size <= 0 {
		size = 1
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}

	number, err := strconv.Atoi(raw)
	switch {
	case err != nil || number < 1:
		number = 1
	case number > pages:
		number = pages
	}

	return Page{Number: number, Size: size, Total: total, TotalPages: pages}
}

// Offset 当前页的偏移量
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HasPrevious 是否有上一页
func (p Page) HasPrevious() bool { return p.Number > 1 }

// HasNext 是否有下一页
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Previous 上一页页码
func (p Page) Previous() int { return p.Number - 1 }

// Next 下一页页码
func (p Page) Next() int { return p.Number + 1 }

// Numbers 所有页码，用于模板渲染分页条
func (p Page) Numbers() []int {
	nums := make([]int, p.TotalPages)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}
