package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-manager/internal/auth"
	"library-manager/internal/domain"
	"library-manager/internal/lock"
	"library-manager/internal/repository/sqlite"
	"library-manager/internal/service"
)

type apiFixture struct {
	router *gin.Engine
	users  service.UserService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	bookRepo := sqlite.NewBookRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	borrowRepo := sqlite.NewBorrowRepository(db)
	require.NoError(t, bookRepo.Init(ctx))
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, borrowRepo.Init(ctx))

	books := service.NewBookService(bookRepo)
	users := service.NewUserService(userRepo)
	lending := service.NewLendingService(sqlite.NewUnitOfWork(db), borrowRepo, lock.NewKeyed(time.Second))
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	router := gin.New()
	NewHandler(books, users, lending, tokens, nil, "", "").RegisterRoutes(router)

	return &apiFixture{router: router, users: users}
}

// registerAndLogin creates an account with the given role and returns a
// bearer token for it.
func (f *apiFixture) registerAndLogin(t *testing.T, username string, role domain.Role) string {
	t.Helper()

	_, err := f.users.Register(context.Background(), service.RegisterInput{
		Username:  username,
		Password:  "Aa123456",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	})
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": username,
		"password": "Aa123456",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func dataField(t *testing.T, resp *httptest.ResponseRecorder, key string) string {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	v, _ := body.Data[key].(string)
	return v
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username":   "reader@mail.com",
		"password":   "Aa123456",
		"first_name": "Jo",
		"last_name":  "Reader",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "PATRON", dataField(t, resp, "role"), "registration defaults to patron")

	resp = f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "reader@mail.com",
		"password": "Aa123456",
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "reader@mail.com",
		"password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/v1/books", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestBookWritesAreStaffOnly(t *testing.T) {
	f := newAPIFixture(t)
	patronToken := f.registerAndLogin(t, "patron@mail.com", domain.RolePatron)
	librarianToken := f.registerAndLogin(t, "librarian@mail.com", domain.RoleLibrarian)

	book := gin.H{"title": "Dune", "author": "Herbert", "isbn": "isbn-1"}

	resp := f.do(t, http.MethodPost, "/api/v1/books", patronToken, book)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/v1/books", librarianToken, book)
	assert.Equal(t, http.StatusCreated, resp.Code)

	// duplicate ISBN
	resp = f.do(t, http.MethodPost, "/api/v1/books", librarianToken, book)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestBorrowLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	librarianToken := f.registerAndLogin(t, "librarian@mail.com", domain.RoleLibrarian)
	patronToken := f.registerAndLogin(t, "patron@mail.com", domain.RolePatron)
	otherToken := f.registerAndLogin(t, "other@mail.com", domain.RolePatron)

	resp := f.do(t, http.MethodPost, "/api/v1/books", librarianToken, gin.H{
		"title": "Dune", "author": "Herbert", "isbn": "isbn-1",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	bookGUID := dataField(t, resp, "guid")
	require.NotEmpty(t, bookGUID)

	// staff cannot borrow
	resp = f.do(t, http.MethodPost, "/api/v1/borrows", librarianToken, gin.H{
		"book_guid": bookGUID, "borrow_days": 14,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// patron borrows
	resp = f.do(t, http.MethodPost, "/api/v1/borrows", patronToken, gin.H{
		"book_guid": bookGUID, "borrow_days": 14,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	borrowGUID := dataField(t, resp, "guid")
	assert.Equal(t, "BORROWED", dataField(t, resp, "status"))

	// book now unavailable
	resp = f.do(t, http.MethodGet, "/api/v1/books/"+bookGUID, patronToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var bookBody struct {
		Data struct {
			Available bool `json:"available"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &bookBody))
	assert.False(t, bookBody.Data.Available)

	// second borrow conflicts
	resp = f.do(t, http.MethodPost, "/api/v1/borrows", otherToken, gin.H{
		"book_guid": bookGUID, "borrow_days": 7,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	// another patron cannot return it
	resp = f.do(t, http.MethodPost, "/api/v1/borrows/"+borrowGUID+"/return", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// owner returns
	resp = f.do(t, http.MethodPost, "/api/v1/borrows/"+borrowGUID+"/return", patronToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "RETURNED", dataField(t, resp, "status"))

	// double return conflicts
	resp = f.do(t, http.MethodPost, "/api/v1/borrows/"+borrowGUID+"/return", patronToken, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestHistoryAndPaginationHeaders(t *testing.T) {
	f := newAPIFixture(t)
	librarianToken := f.registerAndLogin(t, "librarian@mail.com", domain.RoleLibrarian)
	patronToken := f.registerAndLogin(t, "patron@mail.com", domain.RolePatron)

	for _, isbn := range []string{"isbn-1", "isbn-2", "isbn-3"} {
		resp := f.do(t, http.MethodPost, "/api/v1/books", librarianToken, gin.H{
			"title": "Book " + isbn, "author": "Author", "isbn": isbn,
		})
		require.Equal(t, http.StatusCreated, resp.Code)
		bookGUID := dataField(t, resp, "guid")

		resp = f.do(t, http.MethodPost, "/api/v1/borrows", patronToken, gin.H{
			"book_guid": bookGUID, "borrow_days": 7,
		})
		require.Equal(t, http.StatusCreated, resp.Code)
	}

	resp := f.do(t, http.MethodGet, "/api/v1/borrows?page=0&size=2", librarianToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "3", resp.Header().Get("X-Total-Count"))
	assert.Equal(t, "2", resp.Header().Get("X-Total-Pages"))
	assert.Equal(t, "0", resp.Header().Get("X-Current-Page"))
	assert.Equal(t, "2", resp.Header().Get("X-Page-Size"))
	assert.Equal(t, "true", resp.Header().Get("X-Has-Next"))
	assert.Equal(t, "false", resp.Header().Get("X-Has-Previous"))

	// listing all borrows is staff only
	resp = f.do(t, http.MethodGet, "/api/v1/borrows", patronToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// patrons see their own history
	resp = f.do(t, http.MethodGet, "/api/v1/borrows/my-history", patronToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "3", resp.Header().Get("X-Total-Count"))
}

func TestOverdueEndpointStaffOnly(t *testing.T) {
	f := newAPIFixture(t)
	librarianToken := f.registerAndLogin(t, "librarian@mail.com", domain.RoleLibrarian)
	patronToken := f.registerAndLogin(t, "patron@mail.com", domain.RolePatron)

	resp := f.do(t, http.MethodGet, "/api/v1/borrows/overdue", patronToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/v1/borrows/overdue", librarianToken, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestReportsAdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	librarianToken := f.registerAndLogin(t, "librarian@mail.com", domain.RoleLibrarian)
	adminToken := f.registerAndLogin(t, "admin@mail.com", domain.RoleAdmin)

	resp := f.do(t, http.MethodPost, "/api/v1/reports/borrows/export", librarianToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// admin passes the role gate but the fixture has no object storage
	resp = f.do(t, http.MethodPost, "/api/v1/reports/borrows/export", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.registerAndLogin(t, "admin@mail.com", domain.RoleAdmin)
	patronToken := f.registerAndLogin(t, "patron@mail.com", domain.RolePatron)

	// find the patron's guid through the admin user listing
	resp := f.do(t, http.MethodGet, "/api/v1/users?username=patron", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Data []struct {
			GUID string `json:"guid"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)

	resp = f.do(t, http.MethodDelete, "/api/v1/users/"+body.Data[0].GUID, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/v1/books", patronToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code, "tokens die with the account")
}
