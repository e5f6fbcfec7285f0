package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"
)

// 上传目录前缀
const (
	CoversDir  = "covers"
	VideosDir  = "videos"
	AvatarsDir = "avatars"
)

// URLPrefix 媒体文件对外访问前缀
const URLPrefix = "/media/"

// VideoExtensions 允许上传的视频扩展名
var VideoExtensions = []string{"mp4", "mkv", "avi"}

var (
	ErrNotImage          = errors.New("上传的文件不是有效的图片")
	ErrBadVideoExtension = errors.New("视频格式仅支持 mp4、mkv、avi")
)

// MediaStore 本地媒体存储，路径均为相对 Root 的 "/" 分隔路径
type MediaStore struct {
	Root string
}

// NewMediaStore 创建媒体存储并确保上传目录存在
func NewMediaStore(root string) (*MediaStore, error) {
	for _, dir := range []string{CoversDir, VideosDir, AvatarsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("创建媒体目录失败: %w", err)
		}
	}
	return &MediaStore{Root: root}, nil
}

// URL 相对路径转访问地址，空路径返回空字符串
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return URLPrefix + strings.TrimPrefix(rel, "/")
}

// CheckImage 通过文件内容判断是否为图片
func CheckImage(fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return ErrNotImage
	}
	return nil
}

// CheckVideoExtension 校验视频扩展名
func CheckVideoExtension(filename string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, allowed := range VideoExtensions {
		if ext == allowed {
			return nil
		}
	}
	return ErrBadVideoExtension
}

// Save 将上传文件保存到 dir 下，返回相对路径。
// 文件名由原文件名 slug 化得到，重名时追加序号。
func (s *MediaStore) Save(dir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("读取上传文件失败: %w", err)
	}
	defer src.Close()

	base := filepath.Base(fh.Filename)
	ext := strings.ToLower(filepath.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "file"
	}

	for i := 0; ; i++ {
		candidate := name + ext
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", name, i, ext)
		}
		rel := path.Join(dir, candidate)

		dst, err := os.OpenFile(filepath.Join(s.Root, filepath.FromSlash(rel)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("创建文件失败: %w", err)
		}

		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			os.Remove(dst.Name())
			return "", fmt.Errorf("写入文件失败: %w", err)
		}
		return rel, dst.Close()
	}
}

// Delete 删除相对路径对应的文件，文件不存在不算错误
func (s *MediaStore) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// StoredFile 媒体目录中的文件
type StoredFile struct {
	Path    string
	ModTime time.Time
}

// List 列出所有上传目录中的文件
func (s *MediaStore) List() ([]StoredFile, error) {
	var files []StoredFile
	for _, dir := range []string{CoversDir, VideosDir, AvatarsDir} {
		entries, err := os.ReadDir(filepath.Join(s.Root, dir))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, StoredFile{Path: path.Join(dir, e.Name()), ModTime: info.ModTime()})
		}
	}
	return files, nil
}
