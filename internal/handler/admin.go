package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/admin"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ==================== 管理后台 ====================

type adminSection struct {
	Slug  string
	Title string
	Count int64
}

// AdminIndex 后台首页，并发统计各实体数量
func (h *Handler) AdminIndex(c *gin.Context) {
	sections := []adminSection{
		{Slug: admin.Genres.Slug, Title: admin.Genres.Title},
		{Slug: admin.Movies.Slug, Title: admin.Movies.Title},
		{Slug: admin.Profiles.Slug, Title: admin.Profiles.Title},
		{Slug: admin.Groups.Slug, Title: admin.Groups.Title},
		{Slug: admin.Users.Slug, Title: admin.Users.Title},
	}
	counters := []func(...repository.Scope) (int64, error){
		h.Repos.Genre.CountScoped,
		h.Repos.Movie.CountScoped,
		h.Repos.Profile.CountScoped,
		h.Repos.Group.CountScoped,
		h.Repos.User.CountScoped,
	}

	var g errgroup.Group
	for i := range sections {
		g.Go(func() error {
			n, err := counters[i]()
			sections[i].Count = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.serverError(c, err)
		return
	}

	h.render(c, http.StatusOK, "admin_index.html", gin.H{
		"Title":    "管理后台 - " + h.Config.SiteName,
		"Sections": sections,
	})
}

type filterOption struct {
	Label    string
	URL      string
	Selected bool
}

type filterView struct {
	Label   string
	Options []filterOption
}

func filterViews(filters []admin.Filter, p admin.Params, dynamic map[string][]admin.Choice) []filterView {
	views := make([]filterView, 0, len(filters))
	for _, f := range filters {
		choices := f.Choices
		if d, ok := dynamic[f.Name]; ok {
			choices = d
		}
		current := p.Filters[f.Name]
		v := filterView{Label: f.Label}
		v.Options = append(v.Options, filterOption{Label: "全部", URL: p.FilterURL(f.Name, ""), Selected: current == ""})
		for _, ch := range choices {
			v.Options = append(v.Options, filterOption{
				Label:    ch.Label,
				URL:      p.FilterURL(f.Name, ch.Value),
				Selected: current == ch.Value,
			})
		}
		views = append(views, v)
	}
	return views
}

// adminList 通用后台列表：搜索、过滤、排序、分页
func adminList[T any](
	h *Handler,
	c *gin.Context,
	schema *admin.Schema[T],
	list func(...repository.Scope) ([]T, error),
	count func(...repository.Scope) (int64, error),
	choices map[string][]admin.Choice,
) {
	p := admin.ParseParams(c.Request.URL.Query(), schema.Filters)
	where := schema.Where(p, h.now())

	total, err := count(where...)
	if err != nil {
		h.serverError(c, err)
		return
	}
	page, pageScope := schema.Page(p, total)
	items, err := list(append(where, pageScope)...)
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.render(c, http.StatusOK, "admin_list.html", gin.H{
		"Title":      schema.Title + " - 管理后台",
		"Table":      schema.Build(items, p, choices),
		"Params":     p,
		"Page":       page,
		"Filters":    filterViews(schema.Filters, p, choices),
		"Searchable": len(schema.Search) > 0,
		"RawQuery":   c.Request.URL.RawQuery,
	})
}

func genreChoices(genres []*model.Genre) []admin.Choice {
	out := make([]admin.Choice, 0, len(genres))
	for _, g := range genres {
		out = append(out, admin.Choice{Value: fmt.Sprint(g.ID), Label: g.Type})
	}
	return out
}

func userChoices(users []*model.User) []admin.Choice {
	out := []admin.Choice{{Value: "", Label: "---------"}}
	for _, u := range users {
		out = append(out, admin.Choice{Value: fmt.Sprint(u.ID), Label: u.Username})
	}
	return out
}

// AdminGenres 类型列表
func (h *Handler) AdminGenres(c *gin.Context) {
	adminList(h, c, admin.Genres, h.Repos.Genre.ListScoped, h.Repos.Genre.CountScoped, nil)
}

// AdminMovies 电影列表（部分列可直接编辑）
func (h *Handler) AdminMovies(c *gin.Context) {
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
	adminList(h, c, admin.Movies, h.Repos.Movie.ListScoped, h.Repos.Movie.CountScoped, map[string][]admin.Choice{
		"genre":  genreChoices(genres),
		"author": userChoices(users),
	})
}

// AdminProfiles 用户资料列表
func (h *Handler) AdminProfiles(c *gin.Context) {
	adminList(h, c, admin.Profiles, h.Repos.Profile.ListScoped, h.Repos.Profile.CountScoped, nil)
}

// AdminGroups 用户组列表
func (h *Handler) AdminGroups(c *gin.Context) {
	adminList(h, c, admin.Groups, h.Repos.Group.ListScoped, h.Repos.Group.CountScoped, nil)
}

// AdminUsers 用户列表
func (h *Handler) AdminUsers(c *gin.Context) {
	adminList(h, c, admin.Users, h.Repos.User.ListScoped, h.Repos.User.CountScoped, nil)
}

// adminDeleter 一个实体的删除方式
type adminDeleter struct {
	title   string
	find    func(id uint) (string, error) // 返回显示名称，不存在返回空
	warning string
	delete  func(id uint) error
	after   func()
}

func (h *Handler) adminDeleters() map[string]adminDeleter {
	return map[string]adminDeleter{
		admin.Genres.Slug: {
			title: admin.Genres.Title,
			find: func(id uint) (string, error) {
				g, err := h.Repos.Genre.FindByID(id)
				if g == nil {
					return "", err
				}
				return g.Type, nil
			},
			warning: "该类型下的所有电影及其评论将一并删除。",
			delete:  h.Repos.Genre.Delete,
			after:   h.Genres.Invalidate,
		},
		admin.Movies.Slug: {
			title: admin.Movies.Title,
			find: func(id uint) (string, error) {
				m, err := h.Repos.Movie.FindByID(id)
				if m == nil {
					return "", err
				}
				return m.Title, nil
			},
			warning: "该电影的所有评论将一并删除。",
			delete:  h.Repos.Movie.Delete,
		},
		admin.Profiles.Slug: {
			title: admin.Profiles.Title,
			find: func(id uint) (string, error) {
				p, err := h.Repos.Profile.FindByID(id)
				if p == nil {
					return "", err
				}
				if p.User != nil {
					return p.User.Username + " 的资料", nil
				}
				return fmt.Sprintf("资料 #%d", p.ID), nil
			},
			delete: h.Repos.Profile.Delete,
			after:  h.Profiles.InvalidateAll,
		},
		admin.Groups.Slug: {
			title: admin.Groups.Title,
			find: func(id uint) (string, error) {
				g, err := h.Repos.Group.FindByID(id)
				if g == nil {
					return "", err
				}
				return g.Name, nil
			},
			delete: h.Repos.Group.Delete,
		},
		admin.Users.Slug: {
			title: admin.Users.Title,
			find: func(id uint) (string, error) {
				u, err := h.Repos.User.FindByID(id)
				if u == nil {
					return "", err
				}
				return u.Username, nil
			},
			warning: "其资料将被删除，其发布的电影与评论将保留但不再关联作者。",
			delete:  h.Repos.User.Delete,
			after:   h.Profiles.InvalidateAll,
		},
	}
}

// AdminDelete 后台删除确认页
func (h *Handler) AdminDelete(slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, name, ok := h.adminDeleteTarget(c, slug)
		if !ok {
			return
		}
		if d.warning != "" {
			flash.Add(c, flash.Warning, d.warning)
		}
		h.render(c, http.StatusOK, "admin_delete.html", gin.H{
			"Title":  "删除" + d.title + " - 管理后台",
			"Entity": d.title,
			"Object": name,
			"Cancel": fmt.Sprintf("/admin/%s/%s/change/", slug, c.Param("id")),
		})
	}
}

// AdminDeletePost 执行后台删除
func (h *Handler) AdminDeletePost(slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, name, ok := h.adminDeleteTarget(c, slug)
		if !ok {
			return
		}
		id, _ := parseID(c, "id")
		if err := d.delete(id); err != nil {
			h.serverError(c, err)
			return
		}
		if d.after != nil {
			d.after()
		}
		flash.Add(c, flash.Success, fmt.Sprintf("%s“%s”已删除。", d.title, name))
		h.redirect(c, "/admin/"+slug+"/")
	}
}

func (h *Handler) adminDeleteTarget(c *gin.Context, slug string) (adminDeleter, string, bool) {
	d, ok := h.adminDeleters()[slug]
	id, idOK := parseID(c, "id")
	if !ok || !idOK {
		h.NotFound(c)
		return d, "", false
	}
	name, err := d.find(id)
	if err != nil {
		h.serverError(c, err)
		return d, "", false
	}
	if name == "" {
		h.NotFound(c)
		return d, "", false
	}
	return d, name, true
}

// adminSaved 保存成功后的跳转：继续编辑或回到列表
func (h *Handler) adminSaved(c *gin.Context, slug string, id uint, label string) {
	flash.Add(c, flash.Success, fmt.Sprintf("“%s”已保存。", label))
	if c.PostForm("_continue") != "" {
		h.redirect(c, fmt.Sprintf("/admin/%s/%d/change/", slug, id))
		return
	}
	h.redirect(c, "/admin/"+slug+"/")
}
