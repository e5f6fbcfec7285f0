package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/user/moviesite/internal/model"
	"gorm.io/gorm"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()

	db, err := OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewRepositories(db)
}

func mustGenre(t *testing.T, repos *Repositories, name string) *model.Genre {
	t.Helper()
	genre := &model.Genre{Type: name}
	if err := repos.Genre.Create(genre); err != nil {
		t.Fatalf("Genre.Create(%q) error = %v", name, err)
	}
	return genre
}

func mustMovie(t *testing.T, repos *Repositories, title string, genreID uint, release string, published bool) *model.Movie {
	t.Helper()
	day, err := time.Parse("2006-01-02", release)
	if err != nil {
		t.Fatalf("parse release: %v", err)
	}
	movie := &model.Movie{Title: title, GenreID: genreID, Release: day, Published: published}
	if err := repos.Movie.Create(movie); err != nil {
		t.Fatalf("Movie.Create(%q) error = %v", title, err)
	}
	return movie
}

func TestGenreDeleteCascadesMoviesAndComments(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	drama := mustGenre(t, repos, "Drama")
	comedy := mustGenre(t, repos, "Comedy")
	x := mustMovie(t, repos, "X", drama.ID, "2020-01-01", true)
	y := mustMovie(t, repos, "Y", comedy.ID, "2020-01-01", true)
	if err := repos.Comment.Create(&model.Comment{Text: "good", MovieID: x.ID}); err != nil {
		t.Fatalf("Comment.Create() error = %v", err)
	}

	if err := repos.Genre.Delete(drama.ID); err != nil {
		t.Fatalf("Genre.Delete() error = %v", err)
	}

	if g, _ := repos.Genre.FindByID(drama.ID); g != nil {
		t.Fatalf("genre still exists after delete")
	}
	if m, _ := repos.Movie.FindByID(x.ID); m != nil {
		t.Fatalf("movie X still exists after genre delete")
	}
	if n, _ := repos.Comment.CountByMovie(x.ID); n != 0 {
		t.Fatalf("comments of X = %d, want 0", n)
	}
	if m, _ := repos.Movie.FindByID(y.ID); m == nil {
		t.Fatalf("movie Y of another genre was deleted")
	}
}

func TestMovieDeleteCascadesComments(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	genre := mustGenre(t, repos, "Drama")
	movie := mustMovie(t, repos, "X", genre.ID, "2020-01-01", true)
	for _, text := range []string{"a", "b"} {
		if err := repos.Comment.Create(&model.Comment{Text: text, MovieID: movie.ID}); err != nil {
			t.Fatalf("Comment.Create() error = %v", err)
		}
	}

	if err := repos.Movie.Delete(movie.ID); err != nil {
		t.Fatalf("Movie.Delete() error = %v", err)
	}
	if n, _ := repos.Comment.CountByMovie(movie.ID); n != 0 {
		t.Fatalf("comments = %d, want 0", n)
	}
	if g, _ := repos.Genre.FindByID(genre.ID); g == nil {
		t.Fatalf("genre deleted together with movie")
	}
}

func TestIncrementViewsAddsOne(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	genre := mustGenre(t, repos, "Drama")
	movie := mustMovie(t, repos, "X", genre.ID, "2020-01-01", true)

	for want := 1; want <= 3; want++ {
		got, err := repos.Movie.IncrementViews(movie.ID)
		if err != nil {
			t.Fatalf("IncrementViews() error = %v", err)
		}
		if got != want {
			t.Fatalf("IncrementViews() = %d, want %d", got, want)
		}
	}

	if _, err := repos.Movie.IncrementViews(9999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("IncrementViews(missing) error = %v, want ErrRecordNotFound", err)
	}
}

func TestListPublishedFiltersAndOrders(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	drama := mustGenre(t, repos, "Drama")
	comedy := mustGenre(t, repos, "Comedy")
	mustMovie(t, repos, "Old", drama.ID, "2001-05-01", true)
	mustMovie(t, repos, "New", drama.ID, "2022-05-01", true)
	mustMovie(t, repos, "Hidden", drama.ID, "2023-05-01", false)
	mustMovie(t, repos, "Funny", comedy.ID, "2010-05-01", true)

	all, err := repos.Movie.ListPublished(0, 10, 0)
	if err != nil {
		t.Fatalf("ListPublished() error = %v", err)
	}
	var titles []string
	for _, m := range all {
		titles = append(titles, m.Title)
	}
	want := []string{"New", "Funny", "Old"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles = %v, want %v", titles, want)
		}
	}

	if n, _ := repos.Movie.CountPublished(drama.ID); n != 2 {
		t.Fatalf("CountPublished(drama) = %d, want 2", n)
	}
	page, _ := repos.Movie.ListPublished(drama.ID, 1, 1)
	if len(page) != 1 || page[0].Title != "Old" {
		t.Fatalf("second drama page = %+v, want [Old]", page)
	}
	if page[0].Genre == nil || page[0].Genre.Type != "Drama" {
		t.Fatalf("genre not preloaded: %+v", page[0].Genre)
	}
}

func TestMovieTitleIsUnique(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	genre := mustGenre(t, repos, "Drama")
	mustMovie(t, repos, "X", genre.ID, "2020-01-01", true)

	dup := &model.Movie{Title: "X", GenreID: genre.ID, Release: time.Now()}
	if err := repos.Movie.Create(dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create(duplicate title) error = %v, want ErrDuplicate", err)
	}
}

func TestNewMovieIsPublished(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	genre := mustGenre(t, repos, "Drama")
	movie := model.NewMovie()
	movie.Title, movie.GenreID, movie.Release = "Fresh", genre.ID, time.Now()
	if err := repos.Movie.Create(movie); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	stored, _ := repos.Movie.FindByID(movie.ID)
	if !stored.Published {
		t.Fatal("NewMovie() stored unpublished")
	}

	// 显式 false 不被默认值覆盖
	draft := mustMovie(t, repos, "Draft", genre.ID, "2020-01-01", false)
	if stored, _ := repos.Movie.FindByID(draft.ID); stored.Published {
		t.Fatal("explicit unpublished movie stored as published")
	}
}

func TestTransactionRollsBackEveryStep(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	genre := mustGenre(t, repos, "Drama")
	existing := mustMovie(t, repos, "Taken", genre.ID, "2020-01-01", true)

	err := repos.Transaction(func(tx *Repositories) error {
		movie := &model.Movie{Title: "Half Saved", GenreID: genre.ID, Release: time.Now()}
		if err := tx.Movie.Create(movie); err != nil {
			return err
		}
		if err := tx.Comment.Create(&model.Comment{Text: "orphan", MovieID: existing.ID}); err != nil {
			return err
		}
		return tx.Movie.Create(&model.Movie{Title: "Taken", GenreID: genre.ID, Release: time.Now()})
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Transaction() error = %v, want ErrDuplicate", err)
	}
	if found, _ := repos.Movie.FindByTitle("Half Saved"); found != nil {
		t.Fatal("movie from failed transaction was kept")
	}
	if n, _ := repos.Comment.CountByMovie(existing.ID); n != 0 {
		t.Fatalf("comments from failed transaction = %d, want 0", n)
	}
}

func TestMovieUpdateKeepsViews(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	genre := mustGenre(t, repos, "Drama")
	movie := mustMovie(t, repos, "X", genre.ID, "2020-01-01", true)
	repos.Movie.IncrementViews(movie.ID)

	movie.Title = "X2"
	movie.Views = 0
	movie.Published = false
	if err := repos.Movie.Update(movie); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repos.Movie.FindByID(movie.ID)
	if got.Title != "X2" || got.Published {
		t.Fatalf("updated movie = %+v", got)
	}
	if got.Views != 1 {
		t.Fatalf("views = %d, want 1", got.Views)
	}
}

func TestUserCreateHashesAndRejectsDuplicates(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	user, err := repos.User.Create("a", "secret", false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret" {
		t.Fatalf("password stored as %q", user.PasswordHash)
	}
	if _, err := repos.User.Create("a", "other", false); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create(duplicate) error = %v, want ErrDuplicate", err)
	}

	if got, _ := repos.User.Authenticate("a", "secret"); got == nil || got.ID != user.ID {
		t.Fatalf("Authenticate(correct) = %+v", got)
	}
	if got, _ := repos.User.Authenticate("a", "wrong"); got != nil {
		t.Fatalf("Authenticate(wrong password) = %+v, want nil", got)
	}
	if got, _ := repos.User.Authenticate("nobody", "secret"); got != nil {
		t.Fatalf("Authenticate(unknown) = %+v, want nil", got)
	}
}

func TestUserDeleteNullsReferencesAndRemovesProfile(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	user, _ := repos.User.Create("a", "secret", true)
	genre := mustGenre(t, repos, "Drama")
	movie := mustMovie(t, repos, "X", genre.ID, "2020-01-01", true)
	movie.AuthorID = &user.ID
	if err := repos.Movie.Update(movie); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	comment := &model.Comment{Text: "hi", MovieID: movie.ID, UserID: &user.ID}
	repos.Comment.Create(comment)
	repos.Profile.Create(&model.UserProfile{UserID: user.ID, Bio: "bio"})

	if err := repos.User.Delete(user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if p, _ := repos.Profile.FindByUserID(user.ID); p != nil {
		t.Fatalf("profile still exists")
	}
	m, _ := repos.Movie.FindByID(movie.ID)
	if m == nil || m.AuthorID != nil {
		t.Fatalf("movie after user delete = %+v, want author nil", m)
	}
	c, _ := repos.Comment.FindByID(comment.ID)
	if c == nil || c.UserID != nil {
		t.Fatalf("comment after user delete = %+v, want user nil", c)
	}
}

func TestCommentUpdateKeepsCreated(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	genre := mustGenre(t, repos, "Drama")
	movie := mustMovie(t, repos, "X", genre.ID, "2020-01-01", true)
	comment := &model.Comment{Text: "first", MovieID: movie.ID}
	if err := repos.Comment.Create(comment); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before, _ := repos.Comment.FindByID(comment.ID)
	if before.Created.IsZero() {
		t.Fatalf("created not set")
	}

	before.Text = "edited"
	before.Created = time.Now().Add(48 * time.Hour)
	if err := repos.Comment.Update(before); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	after, _ := repos.Comment.FindByID(comment.ID)
	if after.Text != "edited" {
		t.Fatalf("text = %q, want edited", after.Text)
	}
	if after.Created.After(time.Now().Add(time.Hour)) {
		t.Fatalf("created changed to %v", after.Created)
	}
}

func TestProfileFindByUsername(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	with, _ := repos.User.Create("with", "pw", false)
	repos.User.Create("without", "pw", false)
	if err := repos.Profile.Create(&model.UserProfile{UserID: with.ID, Bio: "hello"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repos.Profile.Create(&model.UserProfile{UserID: with.ID}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second profile error = %v, want ErrDuplicate", err)
	}

	p, err := repos.Profile.FindByUsername("with")
	if err != nil || p == nil || p.Bio != "hello" || p.User == nil || p.User.Username != "with" {
		t.Fatalf("FindByUsername(with) = %+v, %v", p, err)
	}
	if p, _ := repos.Profile.FindByUsername("without"); p != nil {
		t.Fatalf("FindByUsername(without) = %+v, want nil", p)
	}
	if p, _ := repos.Profile.FindByUsername("ghost"); p != nil {
		t.Fatalf("FindByUsername(ghost) = %+v, want nil", p)
	}
}

func TestSeedPermissionsIsIdempotent(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	if err := repos.Group.SeedPermissions(); err != nil {
		t.Fatalf("SeedPermissions() error = %v", err)
	}
	perms, err := repos.Group.ListPermissions()
	if err != nil {
		t.Fatalf("ListPermissions() error = %v", err)
	}
	if want := len(permissionModels) * len(permissionActions); len(perms) != want {
		t.Fatalf("permissions = %d, want %d", len(perms), want)
	}
}

func TestGroupSaveReplacesPermissions(t *testing.T) {
	t.Parallel()
	repos := newTestRepos(t)

	perms, _ := repos.Group.ListPermissions()
	group := &model.Group{Name: "editors"}
	if err := repos.Group.Save(group, []uint{perms[0].ID, perms[1].ID}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repos.Group.Save(group, []uint{perms[2].ID}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := repos.Group.FindByID(group.ID)
	if len(got.Permissions) != 1 || got.Permissions[0].ID != perms[2].ID {
		t.Fatalf("permissions = %+v, want only %d", got.Permissions, perms[2].ID)
	}

	if err := repos.Group.Save(&model.Group{Name: "editors"}, nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate group error = %v, want ErrDuplicate", err)
	}
	if err := repos.Group.Delete(group.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if g, _ := repos.Group.FindByID(group.ID); g != nil {
		t.Fatalf("group still exists")
	}
}
