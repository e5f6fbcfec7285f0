package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/admin"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/form"
	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/repository"
)

// AdminMoviesSave 列表页批量保存可编辑列
func (h *Handler) AdminMoviesSave(c *gin.Context) {
	back := "/admin/movies/"
	if q := c.Request.URL.RawQuery; q != "" {
		back += "?" + q
	}

	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}

	var (
		pending []*model.Movie
		errs    []string
	)
	for _, raw := range in.Values["ids"] {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		movie, err := h.Repos.Movie.FindByID(uint(id))
		if err != nil {
			h.serverError(c, err)
			return
		}
		if movie == nil {
			continue
		}

		director := strings.TrimSpace(in.Values.Get(admin.EditName("director", movie.ID)))
		if utf8.RuneCountInString(director) > 100 {
			errs = append(errs, fmt.Sprintf("《%s》：导演最多 100 个字符。", movie.Title))
			continue
		}

		genreID, _ := strconv.ParseUint(in.Values.Get(admin.EditName("genre", movie.ID)), 10, 32)
		genre, err := h.Repos.Genre.FindByID(uint(genreID))
		if err != nil {
			h.serverError(c, err)
			return
		}
		if genre == nil {
			errs = append(errs, fmt.Sprintf("《%s》：请选择有效的类型。", movie.Title))
			continue
		}

		var authorID *uint
		if raw := in.Values.Get(admin.EditName("author", movie.ID)); raw != "" {
			uid, _ := strconv.ParseUint(raw, 10, 32)
			author, err := h.Repos.User.FindByID(uint(uid))
			if err != nil {
				h.serverError(c, err)
				return
			}
			if author == nil {
				errs = append(errs, fmt.Sprintf("《%s》：请选择有效的作者。", movie.Title))
				continue
			}
			authorID = &author.ID
		}

		movie.Director = director
		movie.GenreID = genre.ID
		movie.AuthorID = authorID
		movie.Published = in.Values.Get(admin.EditName("published", movie.ID)) != ""
		pending = append(pending, movie)
	}

	if len(errs) > 0 {
		for _, e := range errs {
			flash.Add(c, flash.Error, e)
		}
		h.redirect(c, back)
		return
	}

	for _, movie := range pending {
		if err := h.Repos.Movie.UpdateListFields(movie); err != nil {
			h.serverError(c, err)
			return
		}
	}
	flash.Add(c, flash.Success, fmt.Sprintf("已成功修改 %d 部电影。", len(pending)))
	h.redirect(c, back)
}

// commentRow 电影编辑页中的内联评论
type commentRow struct {
	ID      uint
	Text    string
	User    string
	Delete  bool
	Created time.Time
	Error   string
}

// Prefix 表单字段前缀
func (r commentRow) Prefix() string {
	if r.ID == 0 {
		return "comment-new"
	}
	return fmt.Sprintf("comment-%d", r.ID)
}

func commentRows(comments []*model.Comment) []commentRow {
	rows := make([]commentRow, 0, len(comments)+1)
	for _, cm := range comments {
		row := commentRow{ID: cm.ID, Text: cm.Text, Created: cm.Created}
		if cm.UserID != nil {
			row.User = strconv.FormatUint(uint64(*cm.UserID), 10)
		}
		rows = append(rows, row)
	}
	return append(rows, commentRow{})
}

// bindCommentRows 读取并校验内联评论，返回是否全部有效
func bindCommentRows(in form.Input, rows []commentRow, users map[string]bool) bool {
	valid := true
	for i := range rows {
		r := &rows[i]
		prefix := r.Prefix()
		r.Text = strings.TrimSpace(in.Values.Get(prefix + "-text"))
		r.User = in.Values.Get(prefix + "-user")
		r.Delete = in.Values.Get(prefix+"-delete") != ""

		switch {
		case r.Delete:
		case r.ID == 0 && r.Text == "":
			// 空的新增行忽略
		case r.Text == "":
			r.Error = "评论内容不能为空。"
		case utf8.RuneCountInString(r.Text) > 500:
			r.Error = "评论最多 500 个字符。"
		case r.User != "" && !users[r.User]:
			r.Error = "请选择有效的用户。"
		}
		if r.Error != "" {
			valid = false
		}
	}
	return valid
}

func (h *Handler) adminMovieFormPage(c *gin.Context, f *form.MovieForm, movie *model.Movie, rows []commentRow) {
	genres, err := h.Repos.Genre.ListAll()
	if err != nil {
		h.serverError(c, err)
		return
	}
	users, err := h.Repos.User.ListAll()
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "admin_movie_form.html", gin.H{
		"Title":     "电影 - 管理后台",
		"Form":      f,
		"Movie":     movie,
		"Fieldsets": admin.MovieFieldsets,
		"Genres":    genres,
		"Users":     users,
		"Comments":  rows,
	})
}

// AdminMovieChange 电影编辑页（新增时无 id）
func (h *Handler) AdminMovieChange(c *gin.Context) {
	if c.Param("id") == "" {
		h.adminMovieFormPage(c, form.NewMovieForm(), nil, commentRows(nil))
		return
	}
	movie, ok := h.loadMovie(c)
	if !ok {
		return
	}
	comments, err := h.Repos.Comment.ListByMovie(movie.ID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.adminMovieFormPage(c, form.MovieFormFrom(movie), movie, commentRows(comments))
}

// AdminMovieChangePost 保存电影与内联评论
func (h *Handler) AdminMovieChangePost(c *gin.Context) {
	var (
		movie   = model.NewMovie()
		current *model.Movie
		rows    = commentRows(nil)
	)
	if c.Param("id") != "" {
		var ok bool
		if current, ok = h.loadMovie(c); !ok {
			return
		}
		movie = current
		comments, err := h.Repos.Comment.ListByMovie(current.ID)
		if err != nil {
			h.serverError(c, err)
			return
		}
		rows = commentRows(comments)
	}

	f, ok := h.bindMovie(c, current)
	if !ok {
		return
	}

	users, err := h.Repos.User.ListAll()
	if err != nil {
		h.serverError(c, err)
		return
	}
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[strconv.FormatUint(uint64(u.ID), 10)] = true
	}
	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}
	rowsValid := bindCommentRows(in, rows, known)

	if len(f.Errors) > 0 || !rowsValid {
		flash.Add(c, flash.Error, "请修正下面的错误。")
		h.adminMovieFormPage(c, f, current, rows)
		return
	}

	// 电影与内联评论一起提交，任一失败全部回滚
	err = h.Repos.Transaction(func(tx *repository.Repositories) error {
		if err := h.persistMovie(tx, f, movie); err != nil {
			return err
		}
		return saveCommentRows(tx, movie.ID, rows)
	})
	if err != nil {
		if isDuplicate(err) {
			f.Errors.Add("title", "已存在同名电影。")
			flash.Add(c, flash.Error, "请修正下面的错误。")
			h.adminMovieFormPage(c, f, current, rows)
			return
		}
		h.serverError(c, err)
		return
	}
	h.adminSaved(c, admin.Movies.Slug, movie.ID, movie.Title)
}

func saveCommentRows(repos *repository.Repositories, movieID uint, rows []commentRow) error {
	for _, r := range rows {
		var userID *uint
		if r.User != "" {
			id, _ := strconv.ParseUint(r.User, 10, 32)
			uid := uint(id)
			userID = &uid
		}

		switch {
		case r.ID == 0 && (r.Delete || r.Text == ""):
		case r.ID == 0:
			if err := repos.Comment.Create(&model.Comment{Text: r.Text, MovieID: movieID, UserID: userID}); err != nil {
				return err
			}
		case r.Delete:
			if err := repos.Comment.Delete(r.ID); err != nil {
				return err
			}
		default:
			if err := repos.Comment.Update(&model.Comment{ID: r.ID, Text: r.Text, UserID: userID}); err != nil {
				return err
			}
		}
	}
	return nil
}
