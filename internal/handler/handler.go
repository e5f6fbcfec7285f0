package handler

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/config"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/middleware"
	"github.com/user/moviesite/internal/repository"
	"github.com/user/moviesite/internal/service"
	"github.com/user/moviesite/internal/storage"
	"github.com/user/moviesite/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Repos    *repository.Repositories
	Config   *config.Config
	Media    *storage.MediaStore
	Genres   *service.GenreCatalog
	Profiles *service.ProfileLookup

	now func() time.Time
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config, media *storage.MediaStore) *Handler {
	return &Handler{
		Repos:    repos,
		Config:   cfg,
		Media:    media,
		Genres:   service.NewGenreCatalog(repos.Genre, utils.NewCache()),
		Profiles: service.NewProfileLookup(repos.Profile, 256, 5*time.Minute),
		now:      time.Now,
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	// 基础数据
	res := gin.H{
		"SiteName": h.Config.SiteName,
		"SiteUrl":  h.Config.SiteUrl,
		"Path":     c.Request.URL.Path,
		"Title":    h.Config.SiteName,
	}

	// 注入用户信息
	if user := middleware.CurrentUser(c); user != nil {
		res["UserInfo"] = user
		res["IsStaff"] = user.IsStaff
	}

	// 导航栏类型
	genres, err := h.Genres.List()
	if err != nil {
		log.Printf("加载类型列表失败: %v", err)
	}
	res["NavGenres"] = genres

	// 菜单高亮逻辑
	res["ActiveMenu"] = h.getActiveMenu(c.Request.URL.Path)

	// 合并传入的数据
	for k, v := range data {
		res[k] = v
	}

	// 最后取出提示消息，包含处理过程中追加的
	res["Messages"] = flash.Consume(c)

	return res
}

// getActiveMenu 根据路径判断当前高亮菜单
func (h *Handler) getActiveMenu(path string) string {
	switch {
	case path == "/":
		return "home"
	case path == "/about/":
		return "about"
	case strings.HasPrefix(path, "/genre/"):
		return "genre"
	case strings.HasPrefix(path, "/profile/"):
		return "user"
	default:
		return ""
	}
}

// render 渲染页面
func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	c.HTML(status, page, h.RenderData(c, data))
}

// NotFound 404 页面
func (h *Handler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "404.html", gin.H{
		"Title": "页面不存在 - " + h.Config.SiteName,
	})
}

// serverError 记录错误并渲染 500 页面
func (h *Handler) serverError(c *gin.Context, err error) {
	log.Printf("[%s] %s 处理失败: %v", c.Request.Method, c.Request.URL.Path, err)
	h.render(c, http.StatusInternalServerError, "500.html", gin.H{
		"Title": "服务器错误 - " + h.Config.SiteName,
	})
}

// redirect 保存提示消息后重定向
func (h *Handler) redirect(c *gin.Context, location string) {
	flash.Persist(c)
	c.Redirect(http.StatusFound, location)
}

// DenyStaff 非管理人员访问增删改页面：提示并返回 404
func (h *Handler) DenyStaff(c *gin.Context) {
	flash.Add(c, flash.Error, "您没有权限执行此操作。")
	h.NotFound(c)
}

// DenyAdmin 非管理人员访问后台：跳转登录页
func (h *Handler) DenyAdmin(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		flash.Add(c, flash.Error, "请使用管理人员账号登录后台。")
	}
	h.redirect(c, middleware.LoginURL(c.Request.URL.RequestURI()))
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID 解析路径中的 ID
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// storeUpload 上传了新文件则保存；勾选清除则置空；否则保留原值
func (h *Handler) storeUpload(dir string, fh *multipart.FileHeader, clear bool, current string) (string, error) {
	switch {
	case fh != nil:
		rel, err := h.Media.Save(dir, fh)
		if err != nil {
			return "", fmt.Errorf("保存上传文件失败: %w", err)
		}
		return rel, nil
	case clear:
		return "", nil
	}
	return current, nil
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
