// Package form 将原始表单输入校验并映射为持久化记录。
package form

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// NonField 不属于某个字段的错误
const NonField = "__all__"

// maxMemory 上传时保留在内存中的最大字节数，超出部分写入临时文件
const maxMemory = 32 << 20

// Errors 字段名到错误消息列表
type Errors map[string][]string

// Add 追加一条错误
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has 字段是否有错误
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First 字段的第一条错误
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Input 一次请求提交的文本字段与文件
type Input struct {
	Values url.Values
	Files  map[string][]*multipart.FileHeader
}

// ReadInput 解析 urlencoded 或 multipart 请求体
func ReadInput(r *http.Request) (Input, error) {
	err := r.ParseMultipartForm(maxMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return Input{}, fmt.Errorf("解析表单失败: %w", err)
	}
	in := Input{Values: r.PostForm}
	if r.MultipartForm != nil {
		in.Files = r.MultipartForm.File
	}
	if in.Values == nil {
		in.Values = url.Values{}
	}
	return in, nil
}

// File 取出上传的文件，未上传返回 nil
func (in Input) File(name string) *multipart.FileHeader {
	if fhs := in.Files[name]; len(fhs) > 0 && fhs[0].Size > 0 {
		return fhs[0]
	}
	return nil
}

// checked 复选框是否勾选
func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// bind 映射表单字段、去除首尾空白并执行 binding 标签校验
func bind(ptr any, in Input) Errors {
	errs := Errors{}
	if err := binding.MapFormWithTag(ptr, in.Values, "form"); err != nil {
		errs.Add(NonField, "表单数据格式错误。")
		return errs
	}
	trimStrings(ptr)

	err := binding.Validator.ValidateStruct(ptr)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		t := reflect.TypeOf(ptr).Elem()
		for _, fe := range verrs {
			errs.Add(formName(t, fe.StructField()), message(fe))
		}
	} else if err != nil {
		errs.Add(NonField, err.Error())
	}
	return errs
}

// trimStrings 去除所有字符串字段首尾空白
func trimStrings(ptr any) {
	v := reflect.ValueOf(ptr).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

func formName(t reflect.Type, field string) string {
	if sf, ok := t.FieldByName(field); ok {
		if tag := strings.Split(sf.Tag.Get("form"), ",")[0]; tag != "" && tag != "-" {
			return tag
		}
	}
	return strings.ToLower(field)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "此字段为必填项。"
	case "max":
		return fmt.Sprintf("最多 %s 个字符。", fe.Param())
	case "numeric":
		return "请选择有效的选项。"
	case "datetime":
		return "请输入有效的日期（YYYY-MM-DD）。"
	default:
		return "输入无效。"
	}
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
