package form

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/user/moviesite/internal/model"
)

type fakeMovies map[string]*model.Movie

func (f fakeMovies) FindByTitle(title string) (*model.Movie, error) { return f[title], nil }

type fakeGenres map[uint]*model.Genre

func (f fakeGenres) FindByID(id uint) (*model.Genre, error) { return f[id], nil }

type fakeUsers map[uint]*model.User

func (f fakeUsers) FindByID(id uint) (*model.User, error) { return f[id], nil }

func input(kv ...string) Input {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Add(kv[i], kv[i+1])
	}
	return Input{Values: v}
}

var (
	genres = fakeGenres{1: {ID: 1, Type: "Drama"}}
	users  = fakeUsers{7: {ID: 7, Username: "staff"}}
)

func TestBindMovieValidInput(t *testing.T) {
	t.Parallel()

	f := BindMovie(input(
		"title", "  X  ",
		"genre", "1",
		"release", "2020-01-01",
		"published", "on",
		"author", "7",
	))
	ok, err := f.Clean(fakeMovies{}, genres, users, nil)
	if err != nil || !ok {
		t.Fatalf("Clean() = %v, %v; errors = %v", ok, err, f.Errors)
	}

	var m model.Movie
	f.Apply(&m)
	if m.Title != "X" || m.GenreID != 1 || !m.Published {
		t.Fatalf("applied movie = %+v", m)
	}
	if m.AuthorID == nil || *m.AuthorID != 7 {
		t.Fatalf("author = %v, want 7", m.AuthorID)
	}
	if !m.Release.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("release = %v", m.Release)
	}
}

func TestBindMovieFieldErrors(t *testing.T) {
	t.Parallel()

	f := BindMovie(input(
		"title", strings.Repeat("a", 76),
		"director", strings.Repeat("d", 101),
		"genre", "",
		"release", "01/01/2020",
	))
	ok, err := f.Clean(fakeMovies{}, genres, users, nil)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if ok {
		t.Fatalf("Clean() = true, want false")
	}
	for _, field := range []string{"title", "director", "genre", "release"} {
		if !f.Errors.Has(field) {
			t.Fatalf("missing error for %q: %v", field, f.Errors)
		}
	}
	if f.IsPublished() {
		t.Fatalf("unchecked published box reported as checked")
	}
}

func TestCleanMovieChecksReferencesAndUniqueness(t *testing.T) {
	t.Parallel()

	existing := &model.Movie{ID: 3, Title: "X"}
	movies := fakeMovies{"X": existing}

	f := BindMovie(input("title", "X", "genre", "9", "release", "2020-01-01", "author", "8"))
	ok, _ := f.Clean(movies, genres, users, nil)
	if ok {
		t.Fatalf("Clean() = true, want false")
	}
	if f.Errors.First("title") != "已存在同名电影。" {
		t.Fatalf("title error = %q", f.Errors.First("title"))
	}
	if !f.Errors.Has("genre") || !f.Errors.Has("author") {
		t.Fatalf("errors = %v, want genre and author", f.Errors)
	}

	// 编辑自身时标题不算重复
	f = BindMovie(input("title", "X", "genre", "1", "release", "2020-01-01"))
	if ok, _ := f.Clean(movies, genres, users, existing); !ok {
		t.Fatalf("Clean(self) errors = %v", f.Errors)
	}
}

func TestMovieFormFromRoundTrips(t *testing.T) {
	t.Parallel()

	author := uint(7)
	m := &model.Movie{
		Title:     "X",
		GenreID:   1,
		Release:   time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC),
		Published: false,
		AuthorID:  &author,
	}
	f := MovieFormFrom(m)
	if f.Genre != "1" || f.Release != "2021-03-04" || f.Author != "7" || f.IsPublished() {
		t.Fatalf("MovieFormFrom() = %+v", f)
	}
}

func TestBindGenre(t *testing.T) {
	t.Parallel()

	if f := BindGenre(input("type", " Drama ")); !f.Valid() || f.Type != "Drama" {
		t.Fatalf("BindGenre(Drama) = %+v", f)
	}
	if f := BindGenre(input("type", "   ")); f.Valid() {
		t.Fatalf("blank type accepted")
	}
	if f := BindGenre(input("type", strings.Repeat("g", 51))); f.Errors.First("type") != "最多 50 个字符。" {
		t.Fatalf("long type error = %v", f.Errors)
	}
}

func TestBindComment(t *testing.T) {
	t.Parallel()

	if f := BindComment(input("text", "nice")); !f.Valid() {
		t.Fatalf("valid comment rejected: %v", f.Errors)
	}
	if f := BindComment(input("text", strings.Repeat("c", 501))); f.Valid() {
		t.Fatalf("501-char comment accepted")
	}
}

func TestRegisterProblem(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Input
		want string
	}{
		{input("username", "a", "password", "p1", "password2", "p1"), ""},
		{input("username", "a", "password", "p1", "password2", "p2"), "两次输入的密码不一致！"},
		{input("username", " ", "password", "p1", "password2", "p1"), "用户名和密码不能为空！"},
		{input("username", strings.Repeat("u", 151), "password", "p", "password2", "p"), "用户名最多 150 个字符！"},
		{input("username", "edit", "password", "p", "password2", "p"), "该用户名不可用！"},
		{input("username", "Edit", "password", "p", "password2", "p"), "该用户名不可用！"},
	}
	for _, tc := range cases {
		if got := BindRegister(tc.in).Problem(); got != tc.want {
			t.Fatalf("Problem(%v) = %q, want %q", tc.in.Values, got, tc.want)
		}
	}
}

func TestUserFlagsPassword(t *testing.T) {
	t.Parallel()

	f, errs := BindUserFlags(input("is_staff", "on"))
	if len(errs) > 0 || f.ChangesPassword() || f.PasswordProblem() != "" {
		t.Fatalf("blank password form = %+v, %v", f, errs)
	}
	f, _ = BindUserFlags(input("new_password", "a", "new_password2", "b"))
	if f.PasswordProblem() == "" {
		t.Fatal("PasswordProblem() = \"\", want mismatch error")
	}
	f, _ = BindUserFlags(input("new_password", "a", "new_password2", "a"))
	if !f.ChangesPassword() || f.PasswordProblem() != "" {
		t.Fatalf("matching password form = %+v", f)
	}
}

func TestBindGroupPermissions(t *testing.T) {
	t.Parallel()

	in := input("name", "editors", "permissions", "1", "permissions", "4")
	f := BindGroup(in)
	if !f.Valid() || len(f.Permissions) != 2 || f.Permissions[1] != 4 {
		t.Fatalf("BindGroup() = %+v", f)
	}
}

func TestProfileCleanUser(t *testing.T) {
	t.Parallel()

	f := BindProfile(input("bio", "hi"))
	f.CleanUser(users)
	if !f.Errors.Has("user") {
		t.Fatalf("missing user accepted")
	}

	f = BindProfile(input("user", "7", "bio", "hi"))
	if err := f.CleanUser(users); err != nil || !f.Valid() || f.UserID() != 7 {
		t.Fatalf("CleanUser(7) = %v, errors %v, id %d", err, f.Errors, f.UserID())
	}
}
