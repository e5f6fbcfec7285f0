package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/form"
	"github.com/user/moviesite/internal/model"
)

func (h *Handler) genreFormPage(c *gin.Context, f *form.GenreForm, genre *model.Genre) {
	header := "添加类型"
	if genre != nil {
		header = "编辑类型：" + genre.Type
	}
	h.render(c, http.StatusOK, "genre_form.html", gin.H{
		"Title":  header + " - " + h.Config.SiteName,
		"Header": header,
		"Form":   f,
		"Genre":  genre,
	})
}

func (h *Handler) loadGenre(c *gin.Context) (*model.Genre, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	genre, err := h.Repos.Genre.FindByID(id)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if genre == nil {
		h.NotFound(c)
		return nil, false
	}
	return genre, true
}

// GenreCreate 添加类型页面
func (h *Handler) GenreCreate(c *gin.Context) {
	h.genreFormPage(c, &form.GenreForm{Errors: form.Errors{}}, nil)
}

// GenreCreatePost 提交添加类型
func (h *Handler) GenreCreatePost(c *gin.Context) {
	h.saveGenre(c, &model.Genre{}, nil)
}

// GenreUpdate 编辑类型页面
func (h *Handler) GenreUpdate(c *gin.Context) {
	genre, ok := h.loadGenre(c)
	if !ok {
		return
	}
	h.genreFormPage(c, form.GenreFormFrom(genre), genre)
}

// GenreUpdatePost 提交编辑类型
func (h *Handler) GenreUpdatePost(c *gin.Context) {
	genre, ok := h.loadGenre(c)
	if !ok {
		return
	}
	h.saveGenre(c, genre, genre)
}

func (h *Handler) saveGenre(c *gin.Context, genre, current *model.Genre) {
	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}
	f := form.BindGenre(in)
	if !f.Valid() {
		flash.Add(c, flash.Error, "请修正下面的错误。")
		h.genreFormPage(c, f, current)
		return
	}

	f.Apply(genre)
	if genre.ID == 0 {
		err = h.Repos.Genre.Create(genre)
	} else {
		err = h.Repos.Genre.Update(genre)
	}
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.Genres.Invalidate()

	flash.Add(c, flash.Success, fmt.Sprintf("类型“%s”已保存。", genre.Type))
	h.redirect(c, fmt.Sprintf("/genre/%d/", genre.ID))
}

// GenreDelete 删除确认页面
func (h *Handler) GenreDelete(c *gin.Context) {
	genre, ok := h.loadGenre(c)
	if !ok {
		return
	}
	flash.Add(c, flash.Warning, fmt.Sprintf("确定要删除类型“%s”吗？该类型下的所有电影及评论将一并删除。", genre.Type))
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Title":  "删除类型 - " + h.Config.SiteName,
		"Object": genre.Type,
		"Cancel": fmt.Sprintf("/genre/%d/", genre.ID),
	})
}

// GenreDeletePost 删除类型及其电影
func (h *Handler) GenreDeletePost(c *gin.Context) {
	genre, ok := h.loadGenre(c)
	if !ok {
		return
	}
	if err := h.Repos.Genre.Delete(genre.ID); err != nil {
		h.serverError(c, err)
		return
	}
	h.Genres.Invalidate()

	flash.Add(c, flash.Success, fmt.Sprintf("类型“%s”已删除。", genre.Type))
	h.redirect(c, "/")
}
