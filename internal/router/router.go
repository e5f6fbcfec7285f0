package router

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/admin"
	"github.com/user/moviesite/internal/handler"
	"github.com/user/moviesite/internal/middleware"
	"github.com/user/moviesite/internal/storage"
	"github.com/user/moviesite/web"
)

// SessionName session cookie 名称
const SessionName = "moviesite"

// NewEngine 创建 Gin 引擎：中间件、模板、静态文件与路由
func NewEngine(h *handler.Handler) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 设置 Session 中间件
	store := cookie.NewStore([]byte(h.Config.AppSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 天
		HttpOnly: true,
		Secure:   h.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(SessionName, store))

	// 加载模板（使用 multitemplate 解决继承问题）
	renderer, err := LoadTemplates(web.FS)
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	// 静态文件
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}
	r.StaticFS("/static", http.FS(static))
	r.Static(strings.TrimSuffix(storage.URLPrefix, "/"), h.Media.Root)

	// 中间件
	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.LoadUser(h.Repos.User))

	RegisterRoutes(r, h)
	return r, nil
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)
	r.NoRoute(h.NotFound)

	// ==================== 公开页面 ====================
	r.GET("/", h.Main)
	r.GET("/about/", h.About)
	r.GET("/genre/:id/", h.GenreMovies)
	r.GET("/movie/:id/", h.MovieDetail)
	r.POST("/movie/:id/comment/", middleware.RequireLoginTo(movieDetailPath), h.AddComment)

	// ==================== 认证页面 ====================
	r.GET("/register/", h.RegisterPage)
	r.POST("/register/", h.Register)
	r.GET("/login/", h.LoginPage)
	r.POST("/login/", h.Login)
	r.GET("/logout/", h.Logout)
	r.POST("/logout/", h.Logout)

	// ==================== 用户资料 ====================
	profile := r.Group("/profile")
	{
		own := profile.Group("", middleware.RequireLogin())
		own.GET("/", h.Profile)
		own.GET("/edit/", h.ProfileEdit)
		own.POST("/edit/", h.ProfileEditPost)

		profile.GET("/:username/", h.PublicProfile)
	}

	// ==================== 增删改（管理人员） ====================
	staff := r.Group("", middleware.RequireStaff(h.DenyStaff))
	{
		staff.GET("/movie/add/", h.MovieCreate)
		staff.POST("/movie/add/", h.MovieCreatePost)
		staff.GET("/movie/:id/update/", h.MovieUpdate)
		staff.POST("/movie/:id/update/", h.MovieUpdatePost)
		staff.GET("/movie/:id/delete/", h.MovieDelete)
		staff.POST("/movie/:id/delete/", h.MovieDeletePost)

		staff.GET("/genre/add/", h.GenreCreate)
		staff.POST("/genre/add/", h.GenreCreatePost)
		staff.GET("/genre/:id/update/", h.GenreUpdate)
		staff.POST("/genre/:id/update/", h.GenreUpdatePost)
		staff.GET("/genre/:id/delete/", h.GenreDelete)
		staff.POST("/genre/:id/delete/", h.GenreDeletePost)
	}

	// ==================== JSON API ====================
	api := r.Group("/api")
	{
		api.POST("/token", h.APIToken)
		api.GET("/genres", h.APIGenres)
		api.GET("/movies", h.APIMovies)
		api.GET("/movies/:id", h.APIMovie)
		api.POST("/movies/:id/comments", middleware.RequireToken(h.Config.AppSecret), h.APIAddComment)
	}

	// ==================== 管理后台 ====================
	adm := r.Group("/admin", middleware.RequireStaff(h.DenyAdmin))
	{
		adm.GET("/", h.AdminIndex)

		adm.GET("/genres/", h.AdminGenres)
		adminChange(adm, admin.Genres.Slug, h.AdminGenreChange, h.AdminGenreChangePost)

		adm.GET("/movies/", h.AdminMovies)
		adm.POST("/movies/", h.AdminMoviesSave)
		adminChange(adm, admin.Movies.Slug, h.AdminMovieChange, h.AdminMovieChangePost)

		adm.GET("/profiles/", h.AdminProfiles)
		adminChange(adm, admin.Profiles.Slug, h.AdminProfileChange, h.AdminProfileChangePost)

		adm.GET("/groups/", h.AdminGroups)
		adminChange(adm, admin.Groups.Slug, h.AdminGroupChange, h.AdminGroupChangePost)

		adm.GET("/users/", h.AdminUsers)
		adminChange(adm, admin.Users.Slug, h.AdminUserChange, h.AdminUserChangePost)

		for _, slug := range []string{admin.Genres.Slug, admin.Movies.Slug, admin.Profiles.Slug, admin.Groups.Slug, admin.Users.Slug} {
			adm.GET("/"+slug+"/:id/delete/", h.AdminDelete(slug))
			adm.POST("/"+slug+"/:id/delete/", h.AdminDeletePost(slug))
		}
	}
}

// movieDetailPath 评论未登录时，登录后回到电影详情页
func movieDetailPath(c *gin.Context) string {
	return "/movie/" + c.Param("id") + "/"
}

// adminChange 新增与编辑页路由
func adminChange(g *gin.RouterGroup, slug string, page, save gin.HandlerFunc) {
	g.GET("/"+slug+"/add/", page)
	g.POST("/"+slug+"/add/", save)
	g.GET("/"+slug+"/:id/change/", page)
	g.POST("/"+slug+"/:id/change/", save)
}

// pages 页面模板；admin_ 前缀的页面使用后台布局
var pages = []string{
	"index", "about", "movie_detail", "movie_form", "genre_form", "confirm_delete",
	"login", "register", "profile", "profile_form", "404", "500",
	"admin_index", "admin_list", "admin_delete",
	"admin_movie_form", "admin_genre_form", "admin_profile_form", "admin_group_form", "admin_user_form",
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(fsys fs.FS) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	for _, page := range pages {
		layout := "base.html"
		if strings.HasPrefix(page, "admin_") {
			layout = "admin.html"
		}
		tmpl, err := template.New(layout).Funcs(funcMap).ParseFS(fsys,
			path.Join("templates/layouts", layout),
			"templates/partials/*.html",
			path.Join("templates/pages", page+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("加载模板 %s 失败: %w", page, err)
		}
		r.Add(page+".html", tmpl)
	}

	return r, nil
}

// 模板函数
var funcMap = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"default": func(defaultValue, value interface{}) interface{} {
		switch v := value.(type) {
		case string:
			if v == "" {
				return defaultValue
			}
		case int:
			if v == 0 {
				return defaultValue
			}
		case nil:
			return defaultValue
		}
		return value
	},
	"media": storage.URL,
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"id": func(v interface{}) string {
		switch n := v.(type) {
		case uint:
			return fmt.Sprint(n)
		case *uint:
			if n == nil {
				return ""
			}
			return fmt.Sprint(*n)
		}
		return fmt.Sprint(v)
	},
}
