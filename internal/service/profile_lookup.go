package service

import (
	"time"

	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/utils"
)

// ProfileFinder 按用户名查找资料
type ProfileFinder interface {
	FindByUsername(username string) (*model.UserProfile, error)
}

// ProfileLookup 公开资料页缓存
type ProfileLookup struct {
	repo  ProfileFinder
	cache *utils.TTLCache[*model.UserProfile]
}

// NewProfileLookup size 为最多缓存的资料数
func NewProfileLookup(repo ProfileFinder, size int, ttl time.Duration) *ProfileLookup {
	return &ProfileLookup{
		repo:  repo,
		cache: utils.NewTTLCache[*model.UserProfile](size, ttl),
	}
}

// Get 返回用户名对应的资料，不存在返回 nil。返回值只读
func (s *ProfileLookup) Get(username string) (*model.UserProfile, error) {
	if p, ok := s.cache.Get(username); ok {
		return p, nil
	}

	p, err := s.repo.FindByUsername(username)
	if err != nil || p == nil {
		return nil, err
	}
	s.cache.Set(username, p)
	return p, nil
}

// Invalidate 资料或用户变更后清除
func (s *ProfileLookup) Invalidate(username string) {
	s.cache.Delete(username)
}

// InvalidateAll 后台批量变更后清空
func (s *ProfileLookup) InvalidateAll() {
	s.cache.Clear()
}
