package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/flash"
	"github.com/user/moviesite/internal/form"
	"github.com/user/moviesite/internal/middleware"
	"github.com/user/moviesite/internal/repository"
)

// ==================== 认证页面 ====================

// RegisterPage 注册页面
func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{
		"Title": "注册 - " + h.Config.SiteName,
	})
}

// Register 处理注册
func (h *Handler) Register(c *gin.Context) {
	in, err := form.ReadInput(c.Request)
	if err != nil {
		h.serverError(c, err)
		return
	}
	f := form.BindRegister(in)
	if msg := f.Problem(); msg != "" {
		flash.Add(c, flash.Error, msg)
		h.redirect(c, "/register/")
		return
	}

	exists, err := h.Repos.User.Exists(f.Username)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if exists {
		flash.Add(c, flash.Error, "用户名已存在！")
		h.redirect(c, "/register/")
		return
	}

	if _, err := h.Repos.User.Create(f.Username, f.Password, false); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			flash.Add(c, flash.Error, "用户名已存在！")
			h.redirect(c, "/register/")
			return
		}
		h.serverError(c, err)
		return
	}

	flash.Add(c, flash.Success, "注册成功，请登录。")
	h.redirect(c, "/login/")
}

// LoginPage 登录页面
func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "登录 - " + h.Config.SiteName,
		"Next":  c.Query("next"),
	})
}

// Login 处理登录
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	next := c.PostForm("next")

	user, err := h.Repos.User.Authenticate(username, password)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if user == nil {
		flash.Add(c, flash.Error, "用户名或密码错误！")
		if next != "" {
			h.redirect(c, middleware.LoginURL(next))
			return
		}
		h.redirect(c, "/login/")
		return
	}

	if err := middleware.Login(c, user); err != nil {
		h.serverError(c, err)
		return
	}
	if err := h.Repos.User.TouchLastLogin(user.ID); err != nil {
		log.Printf("更新最后登录时间失败: %v", err)
	}

	flash.Add(c, flash.Success, fmt.Sprintf("欢迎回来，%s！", user.Username))
	h.redirect(c, middleware.SafeRedirect(next, "/"))
}

// Logout 退出登录
func (h *Handler) Logout(c *gin.Context) {
	if err := middleware.Logout(c); err != nil {
		h.serverError(c, err)
		return
	}
	flash.Add(c, flash.Success, "您已退出登录。")
	h.redirect(c, "/")
}
