package service

import (
	"context"
	"log"
	"time"

	"github.com/user/moviesite/internal/storage"
)

// orphanGrace 新上传文件在此时间内不会被清理（可能尚未写入数据库）
const orphanGrace = time.Hour

// MediaReferences 数据库中仍被引用的媒体路径
type MediaReferences interface {
	MediaPaths() ([]string, error)
}

// AvatarReferences 数据库中仍被引用的头像路径
type AvatarReferences interface {
	AvatarPaths() ([]string, error)
}

// CleanupService 清理无人引用的媒体文件
type CleanupService struct {
	media    *storage.MediaStore
	movies   MediaReferences
	profiles AvatarReferences
	interval time.Duration
	now      func() time.Time
}

// NewCleanupService 创建清理服务
func NewCleanupService(media *storage.MediaStore, movies MediaReferences, profiles AvatarReferences, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupService{
		media:    media,
		movies:   movies,
		profiles: profiles,
		interval: interval,
		now:      time.Now,
	}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()

		// 启动时先运行一次
		s.runCleanup()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCleanup()
			}
		}
	}()
}

func (s *CleanupService) runCleanup() {
	log.Println("[CleanupService] 开始清理无引用的媒体文件...")

	removed, err := s.Run()
	if err != nil {
		log.Printf("[CleanupService] 清理媒体文件失败: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[CleanupService] 已清理 %d 个无引用的媒体文件", removed)
	}
}

// Run 执行一次清理，返回删除的文件数
func (s *CleanupService) Run() (int, error) {
	referenced := make(map[string]struct{})

	paths, err := s.movies.MediaPaths()
	if err != nil {
		return 0, err
	}
	avatars, err := s.profiles.AvatarPaths()
	if err != nil {
		return 0, err
	}
	for _, p := range append(paths, avatars...) {
		referenced[p] = struct{}{}
	}

	files, err := s.media.List()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-orphanGrace)
	removed := 0
	for _, f := range files {
		if _, ok := referenced[f.Path]; ok || f.ModTime.After(cutoff) {
			continue
		}
		if err := s.media.Delete(f.Path); err != nil {
			log.Printf("[CleanupService] 删除 %s 失败: %v", f.Path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
