package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"homepage/pkg/models"
	"homepage/pkg/repository"
	"homepage/pkg/server"
	"homepage/pkg/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const adminPassword = "qingfengmoyun"

type APISuite struct {
	suite.Suite
	store repository.PostStore
	app   *fiber.App
}

func (s *APISuite) SetupTest() {
	s.store = repository.Instrument("memory", repository.NewMemoryStore())
	auth, err := services.NewAuthService(services.AuthOptions{Password: adminPassword, Secret: "test-secret"})
	s.Require().NoError(err)

	posts := services.NewPostsService(s.store, nil, nil, services.PostsOptions{MaxContentLength: 2000})
	s.app = server.NewApp(server.AppOptions{Name: "homepage", Quiet: true})
	server.Mount(s.app, server.Deps{Posts: posts, Auth: auth})
}

func (s *APISuite) do(method, path, body string, headers ...string) (*http.Response, []byte) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	resp.Body.Close()
	return resp, raw
}

func (s *APISuite) messageOf(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	s.Require().NoError(json.Unmarshal(raw, &body), string(raw))
	return body.Message
}

func (s *APISuite) login() string {
	resp, raw := s.do(http.MethodPost, "/api/admin", `{"password":"`+adminPassword+`"}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var out models.LoginResponse
	s.Require().NoError(json.Unmarshal(raw, &out))
	s.Require().True(out.Success)
	s.Require().NotEmpty(out.Token)
	s.Equal("Admin authenticated successfully.", out.Message)
	return out.Token
}

func (s *APISuite) createPost(author, content string) models.Post {
	resp, raw := s.do(http.MethodPost, "/api/posts", `{"author":"`+author+`","content":"`+content+`"}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(raw))
	var post models.Post
	s.Require().NoError(json.Unmarshal(raw, &post))
	return post
}

func (s *APISuite) listPosts() []models.Post {
	resp, raw := s.do(http.MethodGet, "/api/posts", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var posts []models.Post
	s.Require().NoError(json.Unmarshal(raw, &posts))
	return posts
}

func (s *APISuite) TestListEmpty() {
	resp, raw := s.do(http.MethodGet, "/api/posts", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("[]", string(raw))
	s.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func (s *APISuite) TestCreateThenList() {
	post := s.createPost("alice", "hello")
	s.Equal("alice", post.Author)
	s.Equal("hello", post.Content)
	s.NotZero(post.ID)
	s.True(strings.HasSuffix(post.Timestamp, "Z"))

	s.Equal([]models.Post{post}, s.listPosts())

	resp, raw := s.do(http.MethodGet, "/api/index", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	var viaIndex []models.Post
	s.Require().NoError(json.Unmarshal(raw, &viaIndex))
	s.Equal([]models.Post{post}, viaIndex)
}

func (s *APISuite) TestCreateViaIndex() {
	resp, _ := s.do(http.MethodPost, "/api/index", `{"author":"a","content":"b"}`)
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Len(s.listPosts(), 1)
}

func (s *APISuite) TestCreateValidation() {
	for _, body := range []string{`{"author":"a"}`, `{"content":"b"}`, `{}`, ""} {
		resp, raw := s.do(http.MethodPost, "/api/posts", body)
		s.Equal(http.StatusBadRequest, resp.StatusCode, body)
		s.Equal("Author and content are required.", s.messageOf(raw))
	}
	s.Empty(s.listPosts())
}

func (s *APISuite) TestMalformedJSON() {
	resp, raw := s.do(http.MethodPost, "/api/posts", `{"author":`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid JSON.", s.messageOf(raw))
}

func (s *APISuite) TestCreateWithoutContentType() {
	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"author":"a","content":"b"}`))
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(http.StatusCreated, resp.StatusCode)
}

func (s *APISuite) TestDeleteOwnPost() {
	keep := s.createPost("bob", "one")
	gone := s.createPost("alice", "two")

	resp, raw := s.do(http.MethodDelete, "/api/posts", `{"id":`+itoa(gone.ID)+`,"author":"alice"}`)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Post deleted successfully.", s.messageOf(raw))
	s.Equal([]models.Post{keep}, s.listPosts())
}

func (s *APISuite) TestDeleteErrors() {
	post := s.createPost("alice", "x")

	resp, raw := s.do(http.MethodDelete, "/api/posts", `{"author":"alice"}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Post ID is required.", s.messageOf(raw))

	resp, raw = s.do(http.MethodDelete, "/api/posts", `{"id":1,"author":"alice"}`)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("Post not found.", s.messageOf(raw))

	resp, raw = s.do(http.MethodDelete, "/api/posts", `{"id":`+itoa(post.ID)+`,"author":"mallory"}`)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("You can only delete your own posts.", s.messageOf(raw))

	// The flag alone grants nothing.
	resp, _ = s.do(http.MethodDelete, "/api/posts", `{"id":`+itoa(post.ID)+`,"author":"mallory","isAdmin":true}`)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Len(s.listPosts(), 1)
}

func (s *APISuite) TestAdminDelete() {
	post := s.createPost("alice", "x")
	token := s.login()

	// A token without the flag behaves like a normal user.
	resp, _ := s.do(http.MethodDelete, "/api/posts", `{"id":`+itoa(post.ID)+`,"author":"admin"}`,
		"Authorization", "Bearer "+token)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(http.MethodDelete, "/api/posts", `{"id":`+itoa(post.ID)+`,"author":"admin","isAdmin":true}`,
		"Authorization", "Bearer "+token)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Empty(s.listPosts())

	resp, _ = s.do(http.MethodDelete, "/api/posts", `{"id":`+itoa(post.ID)+`,"author":"admin","isAdmin":true}`,
		"Authorization", "Bearer "+token)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APISuite) TestNickname() {
	s.createPost("Alice", "x")

	resp, raw := s.do(http.MethodPost, "/api/users", `{"nickname":"alice"}`)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("This nickname is already taken. Please choose another one.", s.messageOf(raw))

	resp, raw = s.do(http.MethodPost, "/api/users", `{"nickname":"bob"}`)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Nickname is available.", s.messageOf(raw))

	resp, raw = s.do(http.MethodPost, "/api/users", `{"nickname":""}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Nickname is required.", s.messageOf(raw))

	resp, raw = s.do(http.MethodGet, "/api/users", "")
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
	s.Equal("Method Not Allowed", string(raw))
}

func (s *APISuite) TestAdminLoginFailure() {
	resp, raw := s.do(http.MethodPost, "/api/admin", `{"password":"wrong"}`)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var out models.LoginResponse
	s.Require().NoError(json.Unmarshal(raw, &out))
	s.False(out.Success)
	s.Empty(out.Token)
	s.Equal("Invalid password.", out.Message)
}

func (s *APISuite) TestAdminRequiresToken() {
	for _, method := range []string{http.MethodGet, http.MethodPut} {
		resp, raw := s.do(method, "/api/admin", `{"id":1,"content":"x"}`)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
		s.Equal("Unauthorized.", s.messageOf(raw))

		resp, _ = s.do(method, "/api/admin", `{"id":1,"content":"x"}`, "Authorization", "Bearer garbage")
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	}
}

func (s *APISuite) TestAdminOverview() {
	s.createPost("a", "1")
	s.createPost("b", "2")
	s.createPost("a", "3")
	token := s.login()

	resp, raw := s.do(http.MethodGet, "/api/admin", "", "Authorization", "Bearer "+token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var overview models.AdminOverview
	s.Require().NoError(json.Unmarshal(raw, &overview))
	s.Len(overview.Posts, 3)
	s.Equal(models.Stats{TotalPosts: 3, TotalUsers: 2, Authors: []string{"a", "b"}}, overview.Stats)
}

func (s *APISuite) TestAdminUpdate() {
	post := s.createPost("a", "old")
	token := s.login()
	auth := []string{"Authorization", "Bearer " + token}

	resp, raw := s.do(http.MethodPut, "/api/admin", `{"id":`+itoa(post.ID)+`,"content":"new"}`, auth...)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out models.UpdatePostResponse
	s.Require().NoError(json.Unmarshal(raw, &out))
	s.Equal("Post updated successfully.", out.Message)
	s.Equal("new", out.Post.Content)
	s.True(out.Post.Edited)
	s.NotEmpty(out.Post.EditedAt)
	s.Equal(post.Timestamp, out.Post.Timestamp)
	s.Equal(post.Author, out.Post.Author)

	resp, raw = s.do(http.MethodPut, "/api/admin", `{"id":`+itoa(post.ID)+`}`, auth...)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Post ID and content are required.", s.messageOf(raw))

	resp, raw = s.do(http.MethodPut, "/api/admin", `{"id":1,"content":"x"}`, auth...)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("Post not found.", s.messageOf(raw))
}

func (s *APISuite) TestOptionsAndMethods() {
	for _, path := range []string{"/api/posts", "/api/index", "/api/users", "/api/admin"} {
		resp, raw := s.do(http.MethodOptions, path, "")
		s.Equal(http.StatusOK, resp.StatusCode, path)
		s.Empty(raw, path)
		s.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
		s.NotEmpty(resp.Header.Get("Access-Control-Allow-Methods"))
	}

	for _, tc := range []struct{ method, path string }{
		{http.MethodPatch, "/api/posts"},
		{http.MethodPut, "/api/posts"},
		{http.MethodDelete, "/api/index"},
		{http.MethodDelete, "/api/admin"},
		{http.MethodPut, "/api/users"},
	} {
		resp, raw := s.do(tc.method, tc.path, "")
		s.Equal(http.StatusMethodNotAllowed, resp.StatusCode, tc.method+" "+tc.path)
		s.Equal("Method Not Allowed", string(raw))
		s.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func (s *APISuite) TestHealthAndMetrics() {
	resp, raw := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"status":"ok","service":"homepage"}`, string(raw))

	s.do(http.MethodGet, "/api/posts", "")
	resp, raw = s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(raw), "http_requests_total")
	s.Contains(string(raw), "store_ops_total")
}

func (s *APISuite) TestConcurrentCreates() {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"author":"a","content":"b"}`))
			req.Header.Set("Content-Type", "application/json")
			resp, err := s.app.Test(req, -1)
			if s.NoError(err) {
				s.Equal(http.StatusCreated, resp.StatusCode)
			}
		}()
	}
	wg.Wait()
	s.Len(s.listPosts(), 10)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func itoa(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

const storeFailure = "disk full writing /tmp/forum-data.json"

// brokenStore fails every operation the way an unreachable backend does.
type brokenStore struct{}

func (brokenStore) ReadAll(context.Context) ([]models.Post, error) {
	return nil, errors.New(storeFailure)
}

func (brokenStore) WriteAll(context.Context, []models.Post) error {
	return errors.New(storeFailure)
}

func (brokenStore) Mutate(context.Context, repository.MutateFunc) ([]models.Post, error) {
	return nil, errors.New(storeFailure)
}

func (brokenStore) Close() error { return nil }

func TestStoreFailureHidesCause(t *testing.T) {
	auth, err := services.NewAuthService(services.AuthOptions{Password: adminPassword, Secret: "test-secret"})
	require.NoError(t, err)
	token, err := auth.Login(adminPassword)
	require.NoError(t, err)

	posts := services.NewPostsService(brokenStore{}, nil, nil, services.PostsOptions{})
	app := server.NewApp(server.AppOptions{Name: "homepage", Quiet: true})
	server.Mount(app, server.Deps{Posts: posts, Auth: auth})

	cases := []struct {
		name, method, path, body string
		admin                    bool
	}{
		{"list", http.MethodGet, "/api/posts", "", false},
		{"list via index", http.MethodGet, "/api/index", "", false},
		{"create", http.MethodPost, "/api/posts", `{"author":"alice","content":"hi"}`, false},
		{"delete", http.MethodDelete, "/api/posts", `{"id":1,"author":"alice"}`, false},
		{"nickname", http.MethodPost, "/api/users", `{"nickname":"alice"}`, false},
		{"overview", http.MethodGet, "/api/admin", "", true},
		{"update", http.MethodPut, "/api/admin", `{"id":1,"content":"x"}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			req.Header.Set("Content-Type", "application/json")
			if tc.admin {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.JSONEq(t, `{"message":"Internal Server Error"}`, string(raw))
			assert.NotContains(t, string(raw), "disk full")
		})
	}
}
