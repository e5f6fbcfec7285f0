// Package admin 后台列表的静态声明：列、链接、搜索、过滤、排序与可编辑字段。
package admin

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/moviesite/internal/repository"
	"github.com/user/moviesite/internal/utils"
	"gorm.io/gorm"
)

// PerPage 后台列表每页条数
const PerPage = 100

// 查询参数名
const (
	SearchVar = "q"
	OrderVar  = "o"
	PageVar   = "p"
)

// Choice 下拉选项
type Choice struct {
	Value string
	Label string
}

// Input 列表内编辑控件类型
type Input string

const (
	InputNone     Input = ""
	InputText     Input = "text"
	InputSelect   Input = "select"
	InputCheckbox Input = "checkbox"
)

// Column 列表中的一列
type Column[T any] struct {
	Name  string // 排序参数与可编辑字段名
	Label string
	Sort  string // 数据库排序列，空表示不可排序
	Link  bool   // 链接到编辑页
	Input Input  // 非空时在列表中可直接编辑
	Value func(T) string
	HTML  func(T) template.HTML // 优先于 Value
}

// Filter 侧栏过滤器
type Filter struct {
	Name    string
	Label   string
	Choices []Choice // 动态选项由 handler 提供
	Apply   func(value string, now time.Time) (repository.Scope, bool)
}

// Schema 一个实体的后台声明
type Schema[T any] struct {
	Slug     string
	Title    string
	Columns  []Column[T]
	Search   []string // 每项为带一个 ? 的条件，参数为小写的 %q%
	Filters  []Filter
	Ordering string // 默认排序，与 o 参数同格式
	ID       func(T) uint
}

// Params 列表请求参数
type Params struct {
	Query   string
	Order   string
	Page    string
	Filters map[string]string
}

// ParseParams 读取 q / o / p 与过滤参数
func ParseParams(values url.Values, filters []Filter) Params {
	p := Params{
		Query:   strings.TrimSpace(values.Get(SearchVar)),
		Order:   values.Get(OrderVar),
		Page:    values.Get(PageVar),
		Filters: map[string]string{},
	}
	for _, f := range filters {
		if v := values.Get(f.Name); v != "" {
			p.Filters[f.Name] = v
		}
	}
	return p
}

// Where 搜索与过滤条件，用于计数和列表
func (s *Schema[T]) Where(p Params, now time.Time) []repository.Scope {
	var scopes []repository.Scope

	if p.Query != "" && len(s.Search) > 0 {
		pattern := "%" + strings.ToLower(p.Query) + "%"
		conds := s.Search
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			args := make([]interface{}, len(conds))
			for i := range args {
				args[i] = pattern
			}
			return db.Where("("+strings.Join(conds, " OR ")+")", args...)
		})
	}

	for _, f := range s.Filters {
		v, ok := p.Filters[f.Name]
		if !ok || f.Apply == nil {
			continue
		}
		if scope, ok := f.Apply(v, now); ok {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// OrderBy 将 o 参数解析为白名单内的排序，非法值回退到默认排序
func (s *Schema[T]) OrderBy(o string) (clause string, name string, desc bool) {
	for _, candidate := range []string{o, s.Ordering} {
		name = strings.TrimPrefix(candidate, "-")
		desc = strings.HasPrefix(candidate, "-")
		for _, col := range s.Columns {
			if col.Sort != "" && col.Name == name {
				clause = col.Sort
				if desc {
					clause += " DESC"
				}
				return clause, name, desc
			}
		}
	}
	return "id", "", false
}

// Page 排序与分页条件
func (s *Schema[T]) Page(p Params, total int64) (utils.Page, repository.Scope) {
	page := utils.Paginate(p.Page, PerPage, total)
	order, _, _ := s.OrderBy(p.Order)
	return page, func(db *gorm.DB) *gorm.DB {
		return db.Order(order).Order("id").Limit(page.Size).Offset(page.Offset())
	}
}

// Header 表头
type Header struct {
	Label    string
	SortURL  string // 空表示不可排序
	Sorted   bool
	Desc     bool
	Editable bool
}

// Cell 单元格
type Cell struct {
	Text    string
	HTML    template.HTML
	Link    string
	Input   Input
	Name    string
	Value   string
	Checked bool
	Options []Choice
}

// Row 一行
type Row struct {
	ID    uint
	Cells []Cell
}

// Table 渲染用的列表
type Table struct {
	Slug     string
	Title    string
	Headers  []Header
	Rows     []Row
	Editable bool
}

// EditName 列表内编辑控件的表单字段名
func EditName(column string, id uint) string {
	return fmt.Sprintf("%s-%d", column, id)
}

// Build 生成表格；options 为可编辑下拉列的选项
func (s *Schema[T]) Build(items []T, p Params, options map[string][]Choice) Table {
	t := Table{Slug: s.Slug, Title: s.Title}
	_, sortedName, sortedDesc := s.OrderBy(p.Order)

	for _, col := range s.Columns {
		h := Header{Label: col.Label, Editable: col.Input != InputNone}
		if col.Sort != "" {
			next := col.Name
			if col.Name == sortedName {
				h.Sorted = true
				h.Desc = sortedDesc
				if !sortedDesc {
					next = "-" + col.Name
				}
			}
			h.SortURL = "?" + p.with(OrderVar, next).Encode()
		}
		if h.Editable {
			t.Editable = true
		}
		t.Headers = append(t.Headers, h)
	}

	for _, item := range items {
		id := s.ID(item)
		row := Row{ID: id}
		for _, col := range s.Columns {
			cell := Cell{Input: col.Input}
			value := ""
			if col.Value != nil {
				value = col.Value(item)
			}
			switch {
			case col.Input != InputNone:
				cell.Name = EditName(col.Name, id)
				cell.Value = value
				cell.Checked = col.Input == InputCheckbox && value == "true"
				cell.Options = options[col.Name]
			case col.HTML != nil:
				cell.HTML = col.HTML(item)
			default:
				cell.Text = value
			}
			if col.Link {
				cell.Link = fmt.Sprintf("/admin/%s/%d/change/", s.Slug, id)
			}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Values 当前参数编码为查询串（不含页码）
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set(SearchVar, p.Query)
	}
	if p.Order != "" {
		v.Set(OrderVar, p.Order)
	}
	for k, val := range p.Filters {
		v.Set(k, val)
	}
	return v
}

func (p Params) with(key, value string) url.Values {
	v := p.Values()
	if value == "" {
		v.Del(key)
	} else {
		v.Set(key, value)
	}
	return v
}

// FilterURL 切换某个过滤器取值的链接
func (p Params) FilterURL(name, value string) string {
	return "?" + p.with(name, value).Encode()
}

// PageURL 指定页码的链接
func (p Params) PageURL(page int) string {
	return "?" + p.with(PageVar, strconv.Itoa(page)).Encode()
}

// Thumbnail 缩略图列：有地址时输出 img 标签，否则输出占位文字
func Thumbnail(src, width, placeholder string) template.HTML {
	if src == "" {
		return template.HTML(template.HTMLEscapeString(placeholder))
	}
	return template.HTML(fmt.Sprintf("<img src='%s' width='%s' />",
		template.HTMLEscapeString(src), template.HTMLEscapeString(width)))
}
