package admin

import (
	"html/template"
	"strconv"
	"time"

	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/repository"
	"github.com/user/moviesite/internal/storage"
	"gorm.io/gorm"
)

// 缩略图宽度
const (
	CoverWidth  = "60px"
	AvatarWidth = "40px"
)

// Fieldset 编辑页中的一组字段
type Fieldset struct {
	Name   string
	Fields []string
}

// MovieFieldsets 电影编辑页分组
var MovieFieldsets = []Fieldset{
	{Name: "详细信息", Fields: []string{"title", "director", "description", "genre", "author"}},
	{Name: "媒体文件", Fields: []string{"cover", "video"}},
	{Name: "其他", Fields: []string{"release", "published"}},
}

// MovieEditable 电影列表内可编辑的列
var MovieEditable = []string{"director", "genre", "published", "author"}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func optionalID(id *uint) string {
	if id == nil {
		return ""
	}
	return itoa(*id)
}

// Genres 类型
var Genres = &Schema[*model.Genre]{
	Slug:  "genres",
	Title: "类型",
	Columns: []Column[*model.Genre]{
		{Name: "id", Label: "ID", Sort: "id", Link: true, Value: func(g *model.Genre) string { return itoa(g.ID) }},
		{Name: "type", Label: "类型", Sort: "type", Link: true, Value: func(g *model.Genre) string { return g.Type }},
	},
	Search:   []string{"LOWER(type) LIKE ?"},
	Ordering: "type",
	ID:       func(g *model.Genre) uint { return g.ID },
}

// Movies 电影
var Movies = &Schema[*model.Movie]{
	Slug:  "movies",
	Title: "电影",
	Columns: []Column[*model.Movie]{
		{Name: "id", Label: "ID", Sort: "id", Link: true, Value: func(m *model.Movie) string { return itoa(m.ID) }},
		{Name: "title", Label: "标题", Sort: "title", Link: true, Value: func(m *model.Movie) string { return m.Title }},
		{Name: "director", Label: "导演", Sort: "director", Input: InputText, Value: func(m *model.Movie) string { return m.Director }},
		{Name: "genre", Label: "类型", Sort: "genre_id", Input: InputSelect, Value: func(m *model.Movie) string { return itoa(m.GenreID) }},
		{Name: "author", Label: "作者", Sort: "author_id", Input: InputSelect, Value: func(m *model.Movie) string { return optionalID(m.AuthorID) }},
		{Name: "release", Label: "上映日期", Sort: "release", Value: func(m *model.Movie) string { return m.Release.Format("2006-01-02") }},
		{Name: "published", Label: "已发布", Sort: "published", Input: InputCheckbox, Value: func(m *model.Movie) string { return strconv.FormatBool(m.Published) }},
		{Name: "cover", Label: "封面", Link: true, HTML: func(m *model.Movie) template.HTML {
			return Thumbnail(storage.URL(m.Cover), CoverWidth, "No Image")
		}},
	},
	Search: []string{"LOWER(title) LIKE ?", "LOWER(description) LIKE ?"},
	Filters: []Filter{
		{Name: "genre", Label: "按类型", Apply: func(v string, _ time.Time) (repository.Scope, bool) {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, false
			}
			return func(db *gorm.DB) *gorm.DB { return db.Where("genre_id = ?", id) }, true
		}},
		{Name: "release", Label: "按上映日期", Choices: DateChoices, Apply: dateRange("release")},
	},
	Ordering: "-release",
	ID:       func(m *model.Movie) uint { return m.ID },
}

// Profiles 用户资料
var Profiles = &Schema[*model.UserProfile]{
	Slug:  "profiles",
	Title: "用户资料",
	Columns: []Column[*model.UserProfile]{
		{Name: "id", Label: "ID", Sort: "id", Link: true, Value: func(p *model.UserProfile) string { return itoa(p.ID) }},
		{Name: "user", Label: "用户", Sort: "user_id", Link: true, Value: func(p *model.UserProfile) string {
			if p.User == nil {
				return ""
			}
			return p.User.Username
		}},
		{Name: "bio", Label: "简介", Value: func(p *model.UserProfile) string { return p.Bio }},
		{Name: "avatar", Label: "头像", HTML: func(p *model.UserProfile) template.HTML {
			return Thumbnail(storage.URL(p.Avatar), AvatarWidth, "No Avatar")
		}},
	},
	Search: []string{
		"user_id IN (SELECT id FROM users WHERE LOWER(username) LIKE ?)",
		"LOWER(bio) LIKE ?",
	},
	Ordering: "id",
	ID:       func(p *model.UserProfile) uint { return p.ID },
}

// Groups 用户组
var Groups = &Schema[*model.Group]{
	Slug:  "groups",
	Title: "用户组",
	Columns: []Column[*model.Group]{
		{Name: "name", Label: "名称", Sort: "name", Link: true, Value: func(g *model.Group) string { return g.Name }},
	},
	Search:   []string{"LOWER(name) LIKE ?"},
	Ordering: "name",
	ID:       func(g *model.Group) uint { return g.ID },
}

// Users 用户
var Users = &Schema[*model.User]{
	Slug:  "users",
	Title: "用户",
	Columns: []Column[*model.User]{
		{Name: "id", Label: "ID", Sort: "id", Link: true, Value: func(u *model.User) string { return itoa(u.ID) }},
		{Name: "username", Label: "用户名", Sort: "username", Link: true, Value: func(u *model.User) string { return u.Username }},
		{Name: "is_staff", Label: "管理人员", Sort: "is_staff", Value: func(u *model.User) string { return yesNo(u.IsStaff) }},
		{Name: "is_superuser", Label: "超级用户", Sort: "is_superuser", Value: func(u *model.User) string { return yesNo(u.IsSuperuser) }},
		{Name: "date_joined", Label: "注册时间", Sort: "date_joined", Value: func(u *model.User) string {
			return u.DateJoined.Format("2006-01-02 15:04")
		}},
	},
	Search: []string{"LOWER(username) LIKE ?"},
	Filters: []Filter{
		{Name: "is_staff", Label: "按管理人员", Choices: []Choice{{"1", "是"}, {"0", "否"}}, Apply: func(v string, _ time.Time) (repository.Scope, bool) {
			if v != "1" && v != "0" {
				return nil, false
			}
			return func(db *gorm.DB) *gorm.DB { return db.Where("is_staff = ?", v == "1") }, true
		}},
	},
	Ordering: "username",
	ID:       func(u *model.User) uint { return u.ID },
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

// DateChoices 日期过滤选项
var DateChoices = []Choice{
	{"today", "今天"},
	{"past_7_days", "过去 7 天"},
	{"this_month", "本月"},
	{"this_year", "今年"},
}

// DateBounds 日期过滤的 [start, end) 区间（UTC 日期）
func DateBounds(choice string, now time.Time) (start, end time.Time, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	switch choice {
	case "today":
		return today, tomorrow, true
	case "past_7_days":
		return today.AddDate(0, 0, -7), tomorrow, true
	case "this_month":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, 0), true
	case "this_year":
		first := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

func dateRange(column string) func(string, time.Time) (repository.Scope, bool) {
	return func(v string, now time.Time) (repository.Scope, bool) {
		start, end, ok := DateBounds(v, now)
		if !ok {
			return nil, false
		}
		return func(db *gorm.DB) *gorm.DB {
			return db.Where(column+" >= ? AND "+column+" < ?", start, end)
		}, true
	}
}
