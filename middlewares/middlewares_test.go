package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"safasajha-be/models"
	"safasajha-be/store"
	authUtils "safasajha-be/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userMap map[primitive.ObjectID]*models.User

func (m userMap) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func init() { gin.SetMode(gin.TestMode) }

func setup(t *testing.T) (*gin.Engine, *authUtils.Issuer, userMap) {
	t.Helper()
	issuer, err := authUtils.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	users := userMap{}

	r := gin.New()
	auth := AuthMiddleware(users, issuer)
	r.GET("/me", auth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetString(UserIDKey), "name": c.GetString(UserNameKey)})
	})
	r.GET("/admin", auth, AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, issuer, users
}

func addUser(users userMap, role models.Role, active bool) *models.User {
	u := &models.User{ID: primitive.NewObjectID(), Name: "Sita", Role: role, IsActive: active}
	users[u.ID] = u
	return u
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, issuer, users := setup(t)
	citizen := addUser(users, models.RoleUser, true)
	inactive := addUser(users, models.RoleUser, false)

	token, err := issuer.GenerateToken(citizen.ID.Hex())
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := do(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"`+citizen.ID.Hex()+`","name":"Sita"}`, w.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
		assert.Equal(t, http.StatusOK, do(r, req).Code)
	})

	t.Run("query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
		assert.Equal(t, http.StatusOK, do(r, req).Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
	})

	t.Run("unknown or inactive user", func(t *testing.T) {
		for _, id := range []string{primitive.NewObjectID().Hex(), inactive.ID.Hex()} {
			tok, err := issuer.GenerateToken(id)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
		}
	})
}

func TestAdminOnly(t *testing.T) {
	r, issuer, users := setup(t)
	citizen := addUser(users, models.RoleUser, true)
	admin := addUser(users, models.RoleAdmin, true)

	for user, want := range map[*models.User]int{citizen: http.StatusForbidden, admin: http.StatusNoContent} {
		tok, err := issuer.GenerateToken(user.ID.Hex())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		assert.Equal(t, want, do(r, req).Code, user.Role)
	}
}

func limited(client *redis.Client, limit int) *gin.Engine {
	r := gin.New()
	r.POST("/report", func(c *gin.Context) {
		c.Set(UserIDKey, c.Query("user"))
	}, ReportRateLimiter(client, "report-limit", limit), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestReportRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	r := limited(client, 2)

	post := func(user string) *httptest.ResponseRecorder {
		return do(r, httptest.NewRequest(http.MethodPost, "/report?user="+user, nil))
	}

	assert.Equal(t, http.StatusCreated, post("u1").Code)
	assert.Equal(t, http.StatusCreated, post("u1").Code)

	w := post("u1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "retry_after")
	assert.Equal(t, "86400", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, post("u2").Code, "limits are per user")
	assert.Equal(t, 24*time.Hour, mr.TTL("report-limit:u1"))

	mr.FastForward(25 * time.Hour)
	assert.Equal(t, http.StatusCreated, post("u1").Code)
}

func TestReportRateLimiter_Disabled(t *testing.T) {
	r := limited(nil, 1)
	for i := 0; i < 3; i++ {
		w := do(r, httptest.NewRequest(http.MethodPost, "/report?user=u1", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestReportRateLimiter_RequiresUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	w := do(limited(client, 1), httptest.NewRequest(http.MethodPost, "/report", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
