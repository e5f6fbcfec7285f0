package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/form"
	"github.com/user/moviesite/internal/middleware"
	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/repository"
	"github.com/user/moviesite/internal/storage"
	"github.com/user/moviesite/internal/utils"
	"gorm.io/gorm"
)

// ==================== 公开页面 ====================

// Main 首页：已发布电影分页列表
func (h *Handler) Main(c *gin.Context) {
	flash.Add(c, flash.Info, "欢迎，您正在浏览首页。")
	h.listing(c, nil)
}

// GenreMovies 按类型浏览
func (h *Handler) GenreMovies(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}
	genre, err := h.Repos.Genre.FindByID(id)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if genre == nil {
		h.NotFound(c)
		return
	}
	h.listing(c, genre)
}

func (h *Handler) listing(c *gin.Context, genre *model.Genre) {
	var genreID uint
	title := h.Config.SiteName
	if genre != nil {
		genreID = genre.ID
		title = genre.Type + " - " + h.Config.SiteName
	}

	total, err := h.Repos.Movie.CountPublished(genreID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	page := utils.Paginate(c.Query("page"), h.Config.PageSize, total)
	movies, err := h.Repos.Movie.ListPublished(genreID, page.Size, page.Offset())
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.render(c, http.StatusOK, "index.html", gin.H{
		"Title":  title,
		"Genre":  genre,
		"Movies": movies,
		"Page":   page,
	})
}

// About 关于页面
func (h *Handler) About(c *gin.Context) {
	h.render(c, http.StatusOK, "about.html", gin.H{
		"Title": "关于 - " + h.Config.SiteName,
	})
}

// visibleMovie 加载电影；未发布的电影只有管理人员可见
func (h *Handler) visibleMovie(c *gin.Context) (*model.Movie, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	movie, err := h.Repos.Movie.FindByID(id)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if movie == nil || (!movie.Published && !middleware.IsStaff(c)) {
		h.NotFound(c)
		return nil, false
	}
	return movie, true
}

// MovieDetail 电影详情，每次访问浏览量 +1
func (h *Handler) MovieDetail(c *gin.Context) {
	movie, ok := h.visibleMovie(c)
	if !ok {
		return
	}

	views, err := h.Repos.Movie.IncrementViews(movie.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.NotFound(c)
		return
	}
	if err != nil {
		h.serverError(c, err)
		return
	}
	movie.Views = views

	comments, err := h.Repos.Comment.ListByMovie(movie.ID)
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.render(c, http.StatusOK, "movie_detail.html", gin.H{
		"Title":    movie.Title + " - " + h.Config.SiteName,
		"Movie":    movie,
		"Comments": comments,
	})
}

// AddComment 登录用户发表评论
func (h *Handler) AddComment(c *gin.Context) {
	movie, ok := h.visibleMovie(c)
	if !ok {
		return
	}
	detail := fmt.Sprintf("/movie/%d/", movie.ID)

	in, err := form.ReadInput(c.Request)
	if err != nil {
		flash.Add(c, flash.Error, "评论提交失败。")
		h.redirect(c, detail)
		return
	}
	f := form.BindComment(in)
	if !f.Valid() {
		flash.Add(c, flash.Error, "评论内容不能为空，且不超过 500 个字符。")
		h.redirect(c, detail)
		return
	}

	user := middleware.CurrentUser(c)
	comment := &model.Comment{Text: f.Text, MovieID: movie.ID, UserID: &user.ID}
	if err := h.Repos.Comment.Create(comment); err != nil {
		h.serverError(c, err)
		return
	}

	flash.Add(c, flash.Success, "评论已发布。")
	h.redirect(c, detail)
}

// ==================== 电影增删改（管理人员） ====================

func (h *Handler) movieFormPage(c *gin.Context, status int, f *form.MovieForm, movie *model.Movie) {
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

	title := "添加电影"
	if movie != nil {
		title = "编辑电影：" + movie.Title
	}
	h.render(c, status, "movie_form.html", gin.H{
		"Title":  title + " - " + h.Config.SiteName,
		"Header": title,
		"Form":   f,
		"Movie":  movie,
		"Genres": genres,
		"Users":  users,
	})
}

// MovieCreate 添加电影页面
func (h *Handler) MovieCreate(c *gin.Context) {
	h.movieFormPage(c, http.StatusOK, form.NewMovieForm(), nil)
}

// MovieCreatePost 提交添加电影
func (h *Handler) MovieCreatePost(c *gin.Context) {
	movie := model.NewMovie()
	if !h.saveMovie(c, movie, nil) {
		return
	}
	flash.Add(c, flash.Success, fmt.Sprintf("电影《%s》已添加。", movie.Title))
	h.redirect(c, fmt.Sprintf("/movie/%d/", movie.ID))
}

// loadMovie 按路径 ID 加载电影（不区分发布状态）
func (h *Handler) loadMovie(c *gin.Context) (*model.Movie, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	movie, err := h.Repos.Movie.FindByID(id)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if movie == nil {
		h.NotFound(c)
		return nil, false
	}
	return movie, true
}

// MovieUpdate 编辑电影页面
func (h *Handler) MovieUpdate(c *gin.Context) {
	movie, ok := h.loadMovie(c)
	if !ok {
		return
	}
	h.movieFormPage(c, http.StatusOK, form.MovieFormFrom(movie), movie)
}

// MovieUpdatePost 提交编辑电影
func (h *Handler) MovieUpdatePost(c *gin.Context) {
	movie, ok := h.loadMovie(c)
	if !ok {
		return
	}
	if !h.saveMovie(c, movie, movie) {
		return
	}
	flash.Add(c, flash.Success, fmt.Sprintf("电影《%s》已更新。", movie.Title))
	h.redirect(c, fmt.Sprintf("/movie/%d/", movie.ID))
}

// saveMovie 校验并保存电影表单；失败时已完成响应并返回 false
func (h *Handler) saveMovie(c *gin.Context, movie, current *model.Movie) bool {
	f, ok := h.bindMovie(c, current)
	if !ok {
		return false
	}
	if len(f.Errors) > 0 {
		flash.Add(c, flash.Error, "请修正下面的错误。")
		h.movieFormPage(c, http.StatusOK, f, current)
		return false
	}
	if err := h.persistMovie(h.Repos, f, movie); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			f.Errors.Add("title", "已存在同名电影。")
			flash.Add(c, flash.Error, "请修正下面的错误。")
			h.movieFormPage(c, http.StatusOK, f, current)
			return false
		}
		h.serverError(c, err)
		return false
	}
	return true
}

// bindMovie 读取并校验电影表单，返回的表单可能带有字段错误
func (h *Handler) bindMovie(c *gin.Context, current *model.Movie) (*form.MovieForm, bool) {
	in, err := form.ReadInput(c.Request)
	if err != nil {
		flash.Add(c, flash.Error, "表单提交失败，请重试。")
		h.movieFormPage(c, http.StatusOK, form.NewMovieForm(), current)
		return nil, false
	}
	f := form.BindMovie(in)
	if _, err := f.Clean(h.Repos.Movie, h.Repos.Genre, h.Repos.User, current); err != nil {
		h.serverError(c, err)
		return nil, false
	}
	return f, true
}

// persistMovie 写入字段与媒体文件后保存
func (h *Handler) persistMovie(repos *repository.Repositories, f *form.MovieForm, movie *model.Movie) error {
	f.Apply(movie)

	cover, err := h.storeUpload(storage.CoversDir, f.Cover, f.WantsClearCover(), movie.Cover)
	if err != nil {
		return err
	}
	video, err := h.storeUpload(storage.VideosDir, f.Video, f.WantsClearVideo(), movie.Video)
	if err != nil {
		return err
	}
	movie.Cover, movie.Video = cover, video

	if movie.ID == 0 {
		return repos.Movie.Create(movie)
	}
	return repos.Movie.Update(movie)
}

// MovieDelete 删除确认页面
func (h *Handler) MovieDelete(c *gin.Context) {
	movie, ok := h.loadMovie(c)
	if !ok {
		return
	}
	flash.Add(c, flash.Warning, fmt.Sprintf("确定要删除电影《%s》吗？其全部评论将一并删除。", movie.Title))
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Title":  "删除电影 - " + h.Config.SiteName,
		"Object": movie.Title,
		"Cancel": fmt.Sprintf("/movie/%d/", movie.ID),
	})
}

// MovieDeletePost 删除电影及其评论
func (h *Handler) MovieDeletePost(c *gin.Context) {
	movie, ok := h.loadMovie(c)
	if !ok {
		return
	}
	if err := h.Repos.Movie.Delete(movie.ID); err != nil {
		h.serverError(c, err)
		return
	}
	flash.Add(c, flash.Success, fmt.Sprintf("电影《%s》已删除。", movie.Title))
	h.redirect(c, "/")
}
