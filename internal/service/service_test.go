package service

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/moviesite/internal/model"
	"github.com/user/moviesite/internal/storage"
	"github.com/user/moviesite/internal/utils"
)

type countingGenres struct {
	calls  atomic.Int32
	genres []*model.Genre
	err    error
}

func (g *countingGenres) ListAll() ([]*model.Genre, error) {
	g.calls.Add(1)
	time.Sleep(10 * time.Millisecond)
	return g.genres, g.err
}

func TestGenreCatalogCachesAndInvalidates(t *testing.T) {
	t.Parallel()

	repo := &countingGenres{genres: []*model.Genre{{ID: 1, Type: "Drama"}}}
	catalog := NewGenreCatalog(repo, utils.NewCache())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			genres, err := catalog.List()
			if err != nil || len(genres) != 1 {
				t.Errorf("List() = %v, %v", genres, err)
			}
		}()
	}
	wg.Wait()
	if _, err := catalog.List(); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := repo.calls.Load(); got != 1 {
		t.Fatalf("repository calls = %d, want 1", got)
	}

	catalog.Invalidate()
	if _, err := catalog.List(); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := repo.calls.Load(); got != 2 {
		t.Fatalf("repository calls after Invalidate = %d, want 2", got)
	}
}

type blockingGenres struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGenres) ListAll() ([]*model.Genre, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
		return []*model.Genre{{ID: 1, Type: "Deleted"}}, nil
	}
	return []*model.Genre{{ID: 2, Type: "Fresh"}}, nil
}

func TestGenreCatalogDropsFillStartedBeforeInvalidate(t *testing.T) {
	t.Parallel()

	repo := &blockingGenres{entered: make(chan struct{}), release: make(chan struct{})}
	catalog := NewGenreCatalog(repo, utils.NewCache())

	done := make(chan struct{})
	go func() {
		defer close(done)
		catalog.List()
	}()
	<-repo.entered
	catalog.Invalidate()
	close(repo.release)
	<-done

	genres, err := catalog.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(genres) != 1 || genres[0].Type != "Fresh" {
		t.Fatalf("List() after Invalidate = %+v, want Fresh", genres)
	}
	if got := repo.calls.Load(); got != 2 {
		t.Fatalf("repository calls = %d, want 2", got)
	}
}

func TestGenreCatalogDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	repo := &countingGenres{err: errors.New("db down")}
	catalog := NewGenreCatalog(repo, utils.NewCache())
	if _, err := catalog.List(); err == nil {
		t.Fatal("List() error = nil, want db error")
	}

	repo.err = nil
	repo.genres = []*model.Genre{{ID: 2, Type: "Comedy"}}
	genres, err := catalog.List()
	if err != nil || len(genres) != 1 {
		t.Fatalf("List() after recovery = %v, %v", genres, err)
	}
}

type fakeProfiles struct {
	calls    int
	profiles map[string]*model.UserProfile
}

func (f *fakeProfiles) FindByUsername(username string) (*model.UserProfile, error) {
	f.calls++
	return f.profiles[username], nil
}

func TestProfileLookup(t *testing.T) {
	t.Parallel()

	repo := &fakeProfiles{profiles: map[string]*model.UserProfile{
		"alice": {ID: 1, UserID: 1, Bio: "hi"},
	}}
	lookup := NewProfileLookup(repo, 16, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := lookup.Get("alice")
		if err != nil || p == nil || p.Bio != "hi" {
			t.Fatalf("Get(alice) = %+v, %v", p, err)
		}
	}
	if repo.calls != 1 {
		t.Fatalf("repository calls = %d, want 1", repo.calls)
	}

	if p, _ := lookup.Get("nobody"); p != nil {
		t.Fatalf("Get(nobody) = %+v, want nil", p)
	}

	repo.profiles["alice"] = &model.UserProfile{ID: 1, UserID: 1, Bio: "updated"}
	lookup.Invalidate("alice")
	if p, _ := lookup.Get("alice"); p.Bio != "updated" {
		t.Fatalf("Bio after Invalidate = %q, want updated", p.Bio)
	}
}

type staticRefs []string

func (s staticRefs) MediaPaths() ([]string, error)  { return s, nil }
func (s staticRefs) AvatarPaths() ([]string, error) { return s, nil }

func TestCleanupRemovesOnlyOldOrphans(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	media, err := storage.NewMediaStore(root)
	if err != nil {
		t.Fatalf("NewMediaStore() error = %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	write := func(rel string, mod time.Time) {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
		if err := os.Chtimes(full, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", rel, err)
		}
	}
	write("covers/kept.png", old)
	write("avatars/me.png", old)
	write("videos/orphan.mp4", old)
	write("covers/fresh.png", time.Now())

	svc := NewCleanupService(media, staticRefs{"covers/kept.png"}, staticRefs{"avatars/me.png"}, time.Hour)
	removed, err := svc.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if _, err := os.Stat(filepath.Join(root, "videos", "orphan.mp4")); !os.IsNotExist(err) {
		t.Fatalf("orphan still present: %v", err)
	}
	for _, rel := range []string{"covers/kept.png", "avatars/me.png", "covers/fresh.png"} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("%s removed: %v", rel, err)
		}
	}
}
