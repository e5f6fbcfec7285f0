package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/form"
	"github.com/user/moviesite/internal/middleware"
	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/repository"
	"github.com/user/moviesite/internal/storage"
)

// ==================== 用户资料 ====================

// Profile 当前用户的资料（资料可能尚未创建）
func (h *Handler) Profile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	profile, err := h.Repos.Profile.FindByUserID(user.ID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.render(c, http.StatusOK, "profile.html", gin.H{
		"Title":   "我的资料 - " + h.Config.SiteName,
		"Owner":   user,
		"Profile": profile,
		"IsOwn":   true,
	})
}

// PublicProfile 公开资料页
func (h *Handler) PublicProfile(c *gin.Context) {
	profile, err := h.Profiles.Get(c.Param("username"))
	if err != nil {
		h.serverError(c, err)
		return
	}
	if profile == nil || profile.User == nil {
		h.NotFound(c)
		return
	}

	current := middleware.CurrentUser(c)
	h.render(c, http.StatusOK, "profile.html", gin.H{
		"Title":   profile.User.Username + " - " + h.Config.SiteName,
		"Owner":   profile.User,
		"Profile": profile,
		"IsOwn":   current != nil && current.ID == profile.UserID,
	})
}

func (h *Handler) profileFormPage(c *gin.Context, f *form.ProfileForm, profile *model.UserProfile) {
	h.render(c, http.StatusOK, "profile_form.html", gin.H{
		"Title":   "编辑资料 - " + h.Config.SiteName,
		"Form":    f,
		"Profile": profile,
	})
}

// ProfileEdit 编辑资料页面
func (h *Handler) ProfileEdit(c *gin.Context) {
	user := middleware.CurrentUser(c)
	profile, err := h.Repos.Profile.FindByUserID(user.ID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	h.profileFormPage(c, form.ProfileFormFrom(profile), profile)
}

// ProfileEditPost 保存资料，首次保存时创建
func (h *Handler) ProfileEditPost(c *gin.Context) {
	user := middleware.CurrentUser(c)
	profile, err := h.Repos.Profile.FindByUserID(user.ID)
	if err != nil {
		h.serverError(c, err)
		return
	}

	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}
	f := form.BindProfile(in)
	if !f.Valid() {
		flash.Add(c, flash.Error, "请修正下面的错误。")
		h.profileFormPage(c, f, profile)
		return
	}

	if profile == nil {
		profile = &model.UserProfile{UserID: user.ID}
	}
	if err := h.saveProfile(f, profile); err != nil {
		h.serverError(c, err)
		return
	}
	h.Profiles.Invalidate(user.Username)

	flash.Add(c, flash.Success, "资料已更新。")
	h.redirect(c, "/profile/")
}

// saveProfile 写入简介与头像后保存
func (h *Handler) saveProfile(f *form.ProfileForm, profile *model.UserProfile) error {
	avatar, err := h.storeUpload(storage.AvatarsDir, f.Avatar, f.WantsClearAvatar(), profile.Avatar)
	if err != nil {
		return err
	}
	profile.Avatar = avatar
	profile.Bio = f.Bio
	profile.User = nil

	if profile.ID == 0 {
		return h.Repos.Profile.Create(profile)
	}
	return h.Repos.Profile.Update(profile)
}

// isDuplicate 唯一约束冲突
func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
