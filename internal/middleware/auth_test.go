package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/user/moviesite/internal/model"
)

type fakeUsers map[uint]*model.User

func (f fakeUsers) FindByID(id uint) (*model.User, error) { return f[id], nil }

func newEngine(users fakeUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(LoadUser(users))

	r.GET("/login-as/:name", func(c *gin.Context) {
		for _, u := range users {
			if u.Username == c.Param("name") {
				Login(c, u)
			}
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/private", RequireLogin(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Username)
	})
	r.GET("/staff", RequireStaff(func(c *gin.Context) {
		c.String(http.StatusNotFound, "nope")
	}), func(c *gin.Context) {
		c.String(http.StatusOK, "welcome staff")
	})
	r.GET("/api", RequireToken("jwt-secret"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": APIUserID(c)})
	})
	return r
}

func do(r *gin.Engine, path string, cookies []*http.Cookie, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireLoginRedirectsAnonymous(t *testing.T) {
	t.Parallel()
	r := newEngine(fakeUsers{1: {ID: 1, Username: "alice"}})

	rec := do(r, "/private?x=1", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got, want := rec.Header().Get("Location"), "/login/?next=%2Fprivate%3Fx%3D1"; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}

	login := do(r, "/login-as/alice", nil)
	rec = do(r, "/private", login.Result().Cookies())
	if rec.Code != http.StatusOK || rec.Body.String() != "alice" {
		t.Fatalf("signed-in /private = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequireStaff(t *testing.T) {
	t.Parallel()
	r := newEngine(fakeUsers{
		1: {ID: 1, Username: "alice"},
		2: {ID: 2, Username: "boss", IsStaff: true},
	})

	if rec := do(r, "/staff", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("anonymous status = %d, want 404", rec.Code)
	}
	alice := do(r, "/login-as/alice", nil).Result().Cookies()
	if rec := do(r, "/staff", alice); rec.Code != http.StatusNotFound {
		t.Fatalf("non-staff status = %d, want 404", rec.Code)
	}
	boss := do(r, "/login-as/boss", nil).Result().Cookies()
	if rec := do(r, "/staff", boss); rec.Code != http.StatusOK {
		t.Fatalf("staff status = %d, want 200", rec.Code)
	}
}

func TestLoadUserDropsDeletedUser(t *testing.T) {
	t.Parallel()
	users := fakeUsers{1: {ID: 1, Username: "alice"}}
	r := newEngine(users)

	cookies := do(r, "/login-as/alice", nil).Result().Cookies()
	delete(users, 1)
	if rec := do(r, "/private", cookies); rec.Code != http.StatusFound {
		t.Fatalf("deleted user status = %d, want 302", rec.Code)
	}
}

func TestRequireToken(t *testing.T) {
	t.Parallel()
	r := newEngine(fakeUsers{})

	token, err := GenerateToken(&model.User{ID: 42, Username: "bob"}, "jwt-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if rec := do(r, "/api", nil, "Authorization", "Bearer "+token); rec.Code != http.StatusOK || rec.Body.String() != `{"user":42}` {
		t.Fatalf("valid token = %d %s", rec.Code, rec.Body.String())
	}

	forged, _ := GenerateToken(&model.User{ID: 42}, "other-secret", time.Hour)
	if rec := do(r, "/api", nil, "Authorization", "Bearer "+forged); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d, want 401", rec.Code)
	}
	expired, _ := GenerateToken(&model.User{ID: 42}, "jwt-secret", -time.Minute)
	if rec := do(r, "/api", nil, "Authorization", "Bearer "+expired); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d, want 401", rec.Code)
	}
	if rec := do(r, "/api", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}
}

func TestSafeRedirect(t *testing.T) {
	t.Parallel()

	for next, want := range map[string]string{
		"":                     "/",
		"/profile/":            "/profile/",
		"//evil.example":       "/",
		"https://evil.example": "/",
		"/\\evil.example":      "/",
	} {
		if got := SafeRedirect(next, "/"); got != want {
			t.Fatalf("SafeRedirect(%q) = %q, want %q", next, got, want)
		}
	}
}
