package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/admin"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/form"
	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/repository"
)

// adminObjectID 编辑页路径中的 ID；新增页返回 0
func adminObjectID(c *gin.Context) (uint, bool) {
	if c.Param("id") == "" {
		return 0, true
	}
	return parseID(c, "id")
}

// ==================== 类型 ====================

func (h *Handler) adminGenrePage(c *gin.Context, f *form.GenreForm, genre *model.Genre) {
	h.render(c, http.StatusOK, "admin_genre_form.html", gin.H{
		"Title": "类型 - 管理后台",
		"Form":  f,
		"Genre": genre,
	})
}

// AdminGenreChange 类型编辑页
func (h *Handler) AdminGenreChange(c *gin.Context) {
	if c.Param("id") == "" {
		h.adminGenrePage(c, &form.GenreForm{Errors: form.Errors{}}, nil)
		return
	}
	genre, ok := h.loadGenre(c)
	if !ok {
		return
	}
	h.adminGenrePage(c, form.GenreFormFrom(genre), genre)
}

// AdminGenreChangePost 保存类型
func (h *Handler) AdminGenreChangePost(c *gin.Context) {
	genre := &model.Genre{}
	var current *model.Genre
	if c.Param("id") != "" {
		var ok bool
		if current, ok = h.loadGenre(c); !ok {
			return
		}
		genre = current
	}

	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}
	f := form.BindGenre(in)
	if !f.Valid() {
		flash.Add(c, flash.Error, "请修正下面的错误。")
		h.adminGenrePage(c, f, current)
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
	h.adminSaved(c, admin.Genres.Slug, genre.ID, genre.Type)
}

// ==================== 用户资料 ====================

func (h *Handler) adminProfilePage(c *gin.Context, f *form.ProfileForm, profile *model.UserProfile) {
	users, err := h.Repos.User.ListAll()
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "admin_profile_form.html", gin.H{
		"Title":   "用户资料 - 管理后台",
		"Form":    f,
		"Profile": profile,
		"Users":   users,
	})
}

func (h *Handler) loadProfile(c *gin.Context) (*model.UserProfile, bool) {
	id, ok := adminObjectID(c)
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	if id == 0 {
		return nil, true
	}
	profile, err := h.Repos.Profile.FindByID(id)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if profile == nil {
		h.NotFound(c)
		return nil, false
	}
	return profile, true
}

// AdminProfileChange 用户资料编辑页
func (h *Handler) AdminProfileChange(c *gin.Context) {
	profile, ok := h.loadProfile(c)
	if !ok {
		return
	}
	h.adminProfilePage(c, form.ProfileFormFrom(profile), profile)
}

// AdminProfileChangePost 保存用户资料
func (h *Handler) AdminProfileChangePost(c *gin.Context) {
	current, ok := h.loadProfile(c)
	if !ok {
		return
	}

	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}
	f := form.BindProfile(in)
	if err := f.CleanUser(h.Repos.User); err != nil {
		h.serverError(c, err)
		return
	}
	if !f.Valid() {
		flash.Add(c, flash.Error, "请修正下面的错误。")
		h.adminProfilePage(c, f, current)
		return
	}

	profile := current
	if profile == nil {
		profile = &model.UserProfile{}
	}
	profile.UserID = f.UserID()
	if err := h.saveProfile(f, profile); err != nil {
		if isDuplicate(err) {
			f.Errors.Add("user", "该用户已有资料。")
			flash.Add(c, flash.Error, "请修正下面的错误。")
			h.adminProfilePage(c, f, current)
			return
		}
		h.serverError(c, err)
		return
	}
	h.Profiles.InvalidateAll()
	h.adminSaved(c, admin.Profiles.Slug, profile.ID, "资料")
}

// ==================== 用户组 ====================

func (h *Handler) adminGroupPage(c *gin.Context, f *form.GroupForm, group *model.Group) {
	perms, err := h.Repos.Group.ListPermissions()
	if err != nil {
		h.serverError(c, err)
		return
	}
	selected := make(map[uint]bool, len(f.Permissions))
	for _, id := range f.Permissions {
		selected[id] = true
	}
	h.render(c, http.StatusOK, "admin_group_form.html", gin.H{
		"Title":       "用户组 - 管理后台",
		"Form":        f,
		"Group":       group,
		"Permissions": perms,
		"Selected":    selected,
	})
}

func (h *Handler) loadGroup(c *gin.Context) (*model.Group, bool) {
	id, ok := adminObjectID(c)
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	if id == 0 {
		return nil, true
	}
	group, err := h.Repos.Group.FindByID(id)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if group == nil {
		h.NotFound(c)
		return nil, false
	}
	return group, true
}

// AdminGroupChange 用户组编辑页
func (h *Handler) AdminGroupChange(c *gin.Context) {
	group, ok := h.loadGroup(c)
	if !ok {
		return
	}
	f := &form.GroupForm{Errors: form.Errors{}}
	if group != nil {
		f.Name = group.Name
		for _, p := range group.Permissions {
			f.Permissions = append(f.Permissions, p.ID)
		}
	}
	h.adminGroupPage(c, f, group)
}

// AdminGroupChangePost 保存用户组及权限
func (h *Handler) AdminGroupChangePost(c *gin.Context) {
	current, ok := h.loadGroup(c)
	if !ok {
		return
	}

	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}
	f := form.BindGroup(in)
	if !f.Valid() {
		flash.Add(c, flash.Error, "请修正下面的错误。")
		h.adminGroupPage(c, f, current)
		return
	}

	group := &model.Group{Name: f.Name}
	if current != nil {
		group.ID = current.ID
	}
	if err := h.Repos.Group.Save(group, f.Permissions); err != nil {
		if isDuplicate(err) {
			f.Errors.Add("name", "已存在同名用户组。")
			flash.Add(c, flash.Error, "请修正下面的错误。")
			h.adminGroupPage(c, f, current)
			return
		}
		h.serverError(c, err)
		return
	}
	h.adminSaved(c, admin.Groups.Slug, group.ID, group.Name)
}

// ==================== 用户 ====================

func (h *Handler) adminUserPage(c *gin.Context, user *model.User, selected map[uint]bool) {
	groups, err := h.Repos.Group.ListAll()
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "admin_user_form.html", gin.H{
		"Title":    "用户 - 管理后台",
		"User":     user,
		"Groups":   groups,
		"Selected": selected,
	})
}

func (h *Handler) loadUser(c *gin.Context) (*model.User, bool) {
	id, ok := adminObjectID(c)
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	if id == 0 {
		return nil, true
	}
	user, err := h.Repos.User.FindByID(id)
	if err != nil {
		h.serverError(c, err)
		return nil, false
	}
	if user == nil {
		h.NotFound(c)
		return nil, false
	}
	return user, true
}

// AdminUserChange 用户编辑页；新增时只填写用户名与密码
func (h *Handler) AdminUserChange(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	selected := map[uint]bool{}
	if user != nil {
		for _, g := range user.Groups {
			selected[g.ID] = true
		}
	}
	h.adminUserPage(c, user, selected)
}

// AdminUserChangePost 新增用户或保存权限标记与用户组
func (h *Handler) AdminUserChangePost(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}

	if user == nil {
		f := form.BindRegister(in)
		if msg := f.Problem(); msg != "" {
			flash.Add(c, flash.Error, msg)
			h.adminUserPage(c, nil, map[uint]bool{})
			return
		}
		created, err := h.Repos.User.Create(f.Username, f.Password, false)
		if err != nil {
			if isDuplicate(err) {
				flash.Add(c, flash.Error, "用户名已存在！")
				h.adminUserPage(c, nil, map[uint]bool{})
				return
			}
			h.serverError(c, err)
			return
		}
		// 新建后进入编辑页设置权限
		flash.Add(c, flash.Success, "用户已创建，可以继续设置权限。")
		h.redirect(c, "/admin/users/"+itoa(created.ID)+"/change/")
		return
	}

	f, errs := form.BindUserFlags(in)
	if len(errs) > 0 {
		flash.Add(c, flash.Error, "表单数据格式错误。")
		h.adminUserPage(c, user, map[uint]bool{})
		return
	}
	if msg := f.PasswordProblem(); msg != "" {
		selected := make(map[uint]bool, len(f.Groups))
		for _, id := range f.Groups {
			selected[id] = true
		}
		flash.Add(c, flash.Error, msg)
		h.adminUserPage(c, user, selected)
		return
	}

	f.Apply(user)
	err = h.Repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.User.UpdateFlags(user, f.Groups); err != nil {
			return err
		}
		if f.ChangesPassword() {
			return tx.User.UpdatePassword(user.ID, f.NewPassword)
		}
		return nil
	})
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.adminSaved(c, admin.Users.Slug, user.ID, user.Username)
}
