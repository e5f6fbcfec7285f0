package service

import (
	"sync/atomic"

	"github.com/patrickmn/go-cache"
	"github.com/user/moviesite/internal/model"
	"golang.org/x/sync/singleflight"
)

const genresCacheKey = "genres:all"

// GenreLister 读取全部类型
type GenreLister interface {
	ListAll() ([]*model.Genre, error)
}

// GenreCatalog 导航栏类型列表缓存，写操作后需调用 Invalidate
type GenreCatalog struct {
	repo  GenreLister
	cache *cache.Cache
	group singleflight.Group
	gen   atomic.Uint64 // 每次 Invalidate 加一
}

// NewGenreCatalog 创建类型缓存
func NewGenreCatalog(repo GenreLister, c *cache.Cache) *GenreCatalog {
	return &GenreCatalog{repo: repo, cache: c}
}

// List 按 type 排序的全部类型；缓存未命中时合并并发查询
func (s *GenreCatalog) List() ([]*model.Genre, error) {
	if v, ok := s.cache.Get(genresCacheKey); ok {
		return v.([]*model.Genre), nil
	}

	gen := s.gen.Load()
	v, err, _ := s.group.Do(genresCacheKey, func() (interface{}, error) {
		genres, err := s.repo.ListAll()
		if err != nil {
			return nil, err
		}
		// 查询期间缓存已失效时不回填旧数据
		if s.gen.Load() == gen {
			s.cache.SetDefault(genresCacheKey, genres)
		}
		return genres, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Genre), nil
}

// Invalidate 清除缓存
func (s *GenreCatalog) Invalidate() {
	s.gen.Add(1)
	s.group.Forget(genresCacheKey)
	s.cache.Delete(genresCacheKey)
}
