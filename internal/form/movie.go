package form

import (
	"mime/multipart"
	"strconv"
	"time"

	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/storage"
)

// DateLayout 上映日期格式
const DateLayout = "2006-01-02"

// MovieLookup 标题唯一性检查
type MovieLookup interface {
	FindByTitle(title string) (*model.Movie, error)
}

// GenreLookup 类型存在性检查
type GenreLookup interface {
	FindByID(id uint) (*model.Genre, error)
}

// UserLookup 作者存在性检查
type UserLookup interface {
	FindByID(id uint) (*model.User, error)
}

// MovieForm 电影表单（views 不可编辑）
type MovieForm struct {
	Title       string `form:"title" binding:"required,max=75"`
	Director    string `form:"director" binding:"max=100"`
	Description string `form:"description"`
	Genre       string `form:"genre" binding:"required,numeric"`
	Release     string `form:"release" binding:"required,datetime=2006-01-02"`
	Published   string `form:"published"`
	Author      string `form:"author" binding:"omitempty,numeric"`
	ClearCover  string `form:"cover-clear"`
	ClearVideo  string `form:"video-clear"`

	Cover  *multipart.FileHeader `form:"-"`
	Video  *multipart.FileHeader `form:"-"`
	Errors Errors                `form:"-"`

	genreID  uint
	authorID *uint
	release  time.Time
}

// NewMovieForm 空表单，默认发布
func NewMovieForm() *MovieForm {
	return &MovieForm{Published: "on", Errors: Errors{}}
}

// MovieFormFrom 用已有电影填充表单
func MovieFormFrom(m *model.Movie) *MovieForm {
	f := &MovieForm{
		Title:       m.Title,
		Director:    m.Director,
		Description: m.Description,
		Genre:       strconv.FormatUint(uint64(m.GenreID), 10),
		Release:     m.Release.Format(DateLayout),
		Errors:      Errors{},
	}
	if m.Published {
		f.Published = "on"
	}
	if m.AuthorID != nil {
		f.Author = strconv.FormatUint(uint64(*m.AuthorID), 10)
	}
	return f
}

// BindMovie 读取提交内容
func BindMovie(in Input) *MovieForm {
	f := &MovieForm{}
	f.Errors = bind(f, in)
	f.Cover = in.File("cover")
	f.Video = in.File("video")
	return f
}

// IsPublished 发布复选框是否勾选
func (f *MovieForm) IsPublished() bool {
	return checked(f.Published)
}

// Clean 执行需要查库的校验；current 为正在编辑的电影，新建时为 nil
func (f *MovieForm) Clean(movies MovieLookup, genres GenreLookup, users UserLookup, current *model.Movie) (bool, error) {
	if !f.Errors.Has("title") {
		existing, err := movies.FindByTitle(f.Title)
		if err != nil {
			return false, err
		}
		if existing != nil && (current == nil || existing.ID != current.ID) {
			f.Errors.Add("title", "已存在同名电影。")
		}
	}

	if !f.Errors.Has("genre") {
		id, _ := strconv.ParseUint(f.Genre, 10, 64)
		genre, err := genres.FindByID(uint(id))
		if err != nil {
			return false, err
		}
		if genre == nil {
			f.Errors.Add("genre", "请选择有效的选项。")
		} else {
			f.genreID = genre.ID
		}
	}

	if f.Author != "" && !f.Errors.Has("author") {
		id, _ := strconv.ParseUint(f.Author, 10, 64)
		user, err := users.FindByID(uint(id))
		if err != nil {
			return false, err
		}
		if user == nil {
			f.Errors.Add("author", "请选择有效的选项。")
		} else {
			f.authorID = &user.ID
		}
	}

	if !f.Errors.Has("release") {
		day, err := time.Parse(DateLayout, f.Release)
		if err != nil {
			f.Errors.Add("release", "请输入有效的日期（YYYY-MM-DD）。")
		}
		f.release = day
	}

	if f.Cover != nil {
		if err := storage.CheckImage(f.Cover); err != nil {
			f.Errors.Add("cover", "请上传有效的图片。")
		}
	}
	if f.Video != nil {
		if err := storage.CheckVideoExtension(f.Video.Filename); err != nil {
			f.Errors.Add("video", err.Error())
		}
	}

	return len(f.Errors) == 0, nil
}

// Apply 将校验通过的字段写入电影，媒体文件由调用方处理
func (f *MovieForm) Apply(m *model.Movie) {
	m.Title = f.Title
	m.Director = f.Director
	m.Description = f.Description
	m.GenreID = f.genreID
	m.Genre = nil
	m.Release = f.release
	m.Published = f.IsPublished()
	m.AuthorID = f.authorID
	m.Author = nil
}

// WantsClearCover 勾选了清除封面且未上传新封面
func (f *MovieForm) WantsClearCover() bool {
	return f.Cover == nil && checked(f.ClearCover)
}

// WantsClearVideo 勾选了清除视频且未上传新视频
func (f *MovieForm) WantsClearVideo() bool {
	return f.Video == nil && checked(f.ClearVideo)
}

// GenreForm 类型表单
type GenreForm struct {
	Type   string `form:"type" binding:"required,max=50"`
	Errors Errors `form:"-"`
}

// GenreFormFrom 用已有类型填充表单
func GenreFormFrom(g *model.Genre) *GenreForm {
	return &GenreForm{Type: g.Type, Errors: Errors{}}
}

// BindGenre 读取并校验类型表单
func BindGenre(in Input) *GenreForm {
	f := &GenreForm{}
	f.Errors = bind(f, in)
	return f
}

// Valid 是否通过校验
func (f *GenreForm) Valid() bool {
	return len(f.Errors) == 0
}

// Apply 写入类型
func (f *GenreForm) Apply(g *model.Genre) {
	g.Type = f.Type
}
