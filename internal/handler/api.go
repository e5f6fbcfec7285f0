package handler

import (
	"log"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/middleware"
	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/storage"
	"github.com/user/moviesite/internal/utils"
)

// ==================== JSON API ====================

type tokenRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type commentRequest struct {
	Text string `json:"text" form:"text" binding:"required,max=500"`
}

// movieJSON API 返回的电影
type movieJSON struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Director    string `json:"director"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	GenreID     uint   `json:"genre_id"`
	Release     string `json:"release"`
	Views       int    `json:"views"`
	CoverURL    string `json:"cover_url"`
	VideoURL    string `json:"video_url"`
}

func toMovieJSON(m *model.Movie) movieJSON {
	out := movieJSON{
		ID:          m.ID,
		Title:       m.Title,
		Director:    m.Director,
		Description: m.Description,
		GenreID:     m.GenreID,
		Release:     m.Release.Format("2006-01-02"),
		Views:       m.Views,
		CoverURL:    storage.URL(m.Cover),
		VideoURL:    storage.URL(m.Video),
	}
	if m.Genre != nil {
		out.Genre = m.Genre.Type
	}
	return out
}

// APIToken 用户名密码换取 API Token
func (h *Handler) APIToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequest(c, "用户名和密码不能为空")
		return
	}

	user, err := h.Repos.User.Authenticate(req.Username, req.Password)
	if err != nil {
		log.Printf("API 登录失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	if user == nil {
		utils.Unauthorized(c, "用户名或密码错误")
		return
	}

	token, err := middleware.GenerateToken(user, h.Config.AppSecret, h.Config.JWTExpiry())
	if err != nil {
		utils.InternalServerError(c, "生成 Token 失败")
		return
	}
	utils.Success(c, gin.H{
		"token":      token,
		"expires_in": int(h.Config.JWTExpiry().Seconds()),
	})
}

// APIGenres 类型列表
func (h *Handler) APIGenres(c *gin.Context) {
	genres, err := h.Genres.List()
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if genres == nil {
		genres = []*model.Genre{}
	}
	utils.Success(c, genres)
}

// APIMovies 已发布电影分页列表，可按 genre 过滤
func (h *Handler) APIMovies(c *gin.Context) {
	var genreID uint
	if raw := c.Query("genre"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.BadRequest(c, "genre 参数无效")
			return
		}
		genreID = uint(id)
	}

	total, err := h.Repos.Movie.CountPublished(genreID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	page := utils.Paginate(c.Query("page"), h.Config.PageSize, total)
	movies, err := h.Repos.Movie.ListPublished(genreID, page.Size, page.Offset())
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	items := make([]movieJSON, 0, len(movies))
	for _, m := range movies {
		items = append(items, toMovieJSON(m))
	}
	utils.Success(c, gin.H{
		"items":       items,
		"page":        page.Number,
		"total_pages": page.TotalPages,
		"total":       total,
	})
}

// apiMovie 加载已发布电影，失败时已写入响应
func (h *Handler) apiMovie(c *gin.Context) (*model.Movie, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.NotFound(c, "")
		return nil, false
	}
	movie, err := h.Repos.Movie.FindByID(id)
	if err != nil {
		utils.InternalServerError(c, "")
		return nil, false
	}
	if movie == nil || !movie.Published {
		utils.NotFound(c, "电影不存在")
		return nil, false
	}
	return movie, true
}

// APIMovie 电影详情（不计入浏览量）
func (h *Handler) APIMovie(c *gin.Context) {
	movie, ok := h.apiMovie(c)
	if !ok {
		return
	}
	comments, err := h.Repos.Comment.ListByMovie(movie.ID)
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}

	type commentJSON struct {
		ID      uint   `json:"id"`
		Text    string `json:"text"`
		Author  string `json:"author"`
		Created string `json:"created"`
	}
	list := make([]commentJSON, 0, len(comments))
	for _, cm := range comments {
		list = append(list, commentJSON{
			ID:      cm.ID,
			Text:    cm.Text,
			Author:  cm.AuthorName(),
			Created: cm.Created.Format("2006-01-02 15:04:05"),
		})
	}
	utils.Success(c, gin.H{
		"movie":    toMovieJSON(movie),
		"comments": list,
	})
}

// APIAddComment 携带 Token 发表评论
func (h *Handler) APIAddComment(c *gin.Context) {
	movie, ok := h.apiMovie(c)
	if !ok {
		return
	}

	var req commentRequest
	err := c.ShouldBind(&req)
	req.Text = strings.TrimSpace(req.Text)
	if err != nil || req.Text == "" {
		utils.BadRequest(c, "评论内容不能为空，且不超过 500 个字符")
		return
	}

	user, err := h.Repos.User.FindByID(middleware.APIUserID(c))
	if err != nil {
		utils.InternalServerError(c, "")
		return
	}
	if user == nil {
		utils.Unauthorized(c, "用户不存在")
		return
	}

	comment := &model.Comment{Text: req.Text, MovieID: movie.ID, UserID: &user.ID}
	if err := h.Repos.Comment.Create(comment); err != nil {
		utils.InternalServerError(c, "")
		return
	}
	utils.Created(c, "评论已发布", gin.H{"id": comment.ID})
}
