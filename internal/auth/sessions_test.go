package auth

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

func TestSQLiteSessionStore_PersistsActor(t *testing.T) {
	sqlDB, err := sql.Open("sqlite3", "file:"+t.TempDir()+"/sessions.db")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := NewSQLiteSessionStore(sqlDB)
	if err != nil {
		t.Fatalf("NewSQLiteSessionStore() error = %v", err)
	}
	sm := NewSessionManager(store, testAuthConfig())

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.POST("/login", func(c *gin.Context) {
		account := &entities.Account{Username: "admin", Role: entities.UserRoleLibrarian}
		if err := sm.CreateSession(c.Request, account); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", func(c *gin.Context) {
		actor := sm.Actor(c.Request)
		c.JSON(http.StatusOK, gin.H{
			"username": actor.Username,
			"role":     actor.Role,
			"has_time": !sm.LoginAt(c.Request).IsZero(),
		})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("login status = %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "checkoutdesk_session" {
		t.Fatalf("expected one session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	var rows int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&rows); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected 1 persisted session, got %d", rows)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	want := `{"has_time":true,"role":"librarian","username":"admin"}`
	if w.Body.String() != want {
		t.Errorf("whoami body = %s, want %s", w.Body.String(), want)
	}
}

func TestSessionManager_ActorWithoutSession(t *testing.T) {
	sm := NewSessionManager(nil, testAuthConfig())

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.GET("/", func(c *gin.Context) {
		if sm.Actor(c.Request).Authenticated() {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("no cookie should be written for an untouched session")
	}
}
