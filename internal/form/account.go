package form

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/storage"
)

// CommentForm 评论表单
type CommentForm struct {
	Text   string `form:"text" binding:"required,max=500"`
	Errors Errors `form:"-"`
}

// BindComment 读取并校验评论
func BindComment(in Input) *CommentForm {
	f := &CommentForm{}
	f.Errors = bind(f, in)
	return f
}

// Valid 是否通过校验
func (f *CommentForm) Valid() bool {
	return len(f.Errors) == 0
}

// RegisterForm 注册表单
type RegisterForm struct {
	Username  string `form:"username"`
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

// BindRegister 读取注册表单（密码不去除空白）
func BindRegister(in Input) *RegisterForm {
	return &RegisterForm{
		Username:  trim(in.Values.Get("username")),
		Password:  in.Values.Get("password"),
		Password2: in.Values.Get("password2"),
	}
}

// Problem 返回第一个面向用户的错误，无错误返回空字符串
func (f *RegisterForm) Problem() string {
	switch {
	case f.Username == "" || f.Password == "":
		return "用户名和密码不能为空！"
	case len([]rune(f.Username)) > 150:
		return "用户名最多 150 个字符！"
	case reservedUsername(f.Username):
		return "该用户名不可用！"
	case f.Password != f.Password2:
		return "两次输入的密码不一致！"
	}
	return ""
}

// reservedUsernames 与 /profile/ 下固定路径冲突的用户名
var reservedUsernames = []string{"edit"}

func reservedUsername(name string) bool {
	for _, r := range reservedUsernames {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

// ProfileForm 用户资料表单；后台编辑时额外提交 user
type ProfileForm struct {
	User        string `form:"user" binding:"omitempty,numeric"`
	Bio         string `form:"bio"`
	ClearAvatar string `form:"avatar-clear"`

	Avatar *multipart.FileHeader `form:"-"`
	Errors Errors                `form:"-"`

	userID uint
}

// ProfileFormFrom 用已有资料填充表单
func ProfileFormFrom(p *model.UserProfile) *ProfileForm {
	f := &ProfileForm{Errors: Errors{}}
	if p != nil {
		f.Bio = p.Bio
		f.User = strconv.FormatUint(uint64(p.UserID), 10)
	}
	return f
}

// BindProfile 读取资料表单
func BindProfile(in Input) *ProfileForm {
	f := &ProfileForm{}
	f.Errors = bind(f, in)
	f.Avatar = in.File("avatar")
	if f.Avatar != nil {
		if err := storage.CheckImage(f.Avatar); err != nil {
			f.Errors.Add("avatar", "请上传有效的图片。")
		}
	}
	return f
}

// CleanUser 后台编辑时校验所属用户
func (f *ProfileForm) CleanUser(users UserLookup) error {
	if f.User == "" {
		f.Errors.Add("user", "此字段为必填项。")
		return nil
	}
	if f.Errors.Has("user") {
		return nil
	}
	id, _ := strconv.ParseUint(f.User, 10, 64)
	user, err := users.FindByID(uint(id))
	if err != nil {
		return err
	}
	if user == nil {
		f.Errors.Add("user", "请选择有效的选项。")
		return nil
	}
	f.userID = user.ID
	return nil
}

// Valid 是否通过校验
func (f *ProfileForm) Valid() bool {
	return len(f.Errors) == 0
}

// UserID CleanUser 校验通过的用户 ID
func (f *ProfileForm) UserID() uint {
	return f.userID
}

// WantsClearAvatar 勾选了清除头像且未上传新头像
func (f *ProfileForm) WantsClearAvatar() bool {
	return f.Avatar == nil && checked(f.ClearAvatar)
}

// GroupForm 后台用户组表单
type GroupForm struct {
	Name        string `form:"name" binding:"required,max=150"`
	Permissions []uint `form:"permissions"`
	Errors      Errors `form:"-"`
}

// BindGroup 读取用户组表单
func BindGroup(in Input) *GroupForm {
	f := &GroupForm{}
	f.Errors = bind(f, in)
	return f
}

// Valid 是否通过校验
func (f *GroupForm) Valid() bool {
	return len(f.Errors) == 0
}

// UserFlagsForm 后台用户权限表单
type UserFlagsForm struct {
	IsStaff     string `form:"is_staff"`
	IsSuperuser string `form:"is_superuser"`
	Groups      []uint `form:"groups"`

	// 留空则不修改密码
	NewPassword  string `form:"new_password"`
	NewPassword2 string `form:"new_password2"`
}

// BindUserFlags 读取用户权限表单
func BindUserFlags(in Input) (*UserFlagsForm, Errors) {
	f := &UserFlagsForm{}
	return f, bind(f, in)
}

// PasswordProblem 新密码的错误提示，无错误返回空字符串
func (f *UserFlagsForm) PasswordProblem() string {
	if f.NewPassword != f.NewPassword2 {
		return "两次输入的密码不一致！"
	}
	return ""
}

// ChangesPassword 是否填写了新密码
func (f *UserFlagsForm) ChangesPassword() bool {
	return f.NewPassword != ""
}

// Apply 写入用户标记
func (f *UserFlagsForm) Apply(u *model.User) {
	u.IsStaff = checked(f.IsStaff)
	u.IsSuperuser = checked(f.IsSuperuser)
}
