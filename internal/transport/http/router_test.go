package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"iaset/internal/auth"
	authhandler "iaset/internal/auth/handler"
	"iaset/internal/credentials"
	"iaset/internal/dependents"
	dependentshandler "iaset/internal/dependents/handler"
	"iaset/internal/files"
	"iaset/internal/lockout"
	"iaset/internal/platform/logger"
	"iaset/internal/register"
	registerhandler "iaset/internal/register/handler"
	"iaset/internal/users"
	usershandler "iaset/internal/users/handler"
)

// RouterSuite runs the API against in-memory storage, exercising the full
// middleware and guard chain over real HTTP.
type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	creds  *credentials.Service
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := logger.New()

	userStore := users.NewMemoryStore()
	depStore := dependents.NewMemoryStore()
	fileStore := files.NewStore(s.T().TempDir(), nil, log)
	s.creds = credentials.NewService("user-key", "admin-key", time.Hour, time.Hour)
	lock := lockout.NewService(lockout.NewMemoryStore(), log)
	runner := register.NewMemoryTxRunner(userStore, depStore)

	authSvc := auth.NewService(userStore, s.creds, lock, nil, log)
	regSvc := register.NewService(userStore, depStore, fileStore, runner, nil, log)
	userSvc := users.NewService(userStore, fileStore, &noopMailer{}, log)
	depSvc := dependents.NewService(depStore, fileStore)

	authH := authhandler.New(authSvc, log)
	regH := registerhandler.New(regSvc, log)
	userH := usershandler.New(userSvc, log)
	depH := dependentshandler.New(depSvc, log)

	router := NewRouter(Deps{
		Logger:    log,
		Metrics:   nil,
		Validator: s.creds,
		Public: []func(chi.Router){
			authH.Register,
			regH.Register,
			userH.RegisterPublic,
		},
		User: []func(chi.Router){
			userH.RegisterUser,
			depH.RegisterUser,
		},
		Admin: []func(chi.Router){
			userH.RegisterAdmin,
			depH.RegisterAdmin,
		},
	})

	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

type noopMailer struct{}

func (noopMailer) SendPasswordReset(_ context.Context, _, _ string) error { return nil }

func (s *RouterSuite) adminToken() string {
	token, err := s.creds.IssueAdminToken(1, "admin@iaset.gov.br", "admin")
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) registerForm(cpf, email string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	s.Require().NoError(w.WriteField("name", "João da Silva"))
	s.Require().NoError(w.WriteField("cpf", cpf))
	s.Require().NoError(w.WriteField("email", email))
	s.Require().NoError(w.WriteField("phone", "11999990000"))
	s.Require().NoError(w.WriteField("password", "senha123"))
	s.Require().NoError(w.WriteField("birthDay", "1990-01-15"))
	s.Require().NoError(w.WriteField("dependents",
		`[{"name":"Ana","birthDate":"2015-03-10","relationship":"filha"}]`))
	s.Require().NoError(w.Close())
	return body, w.FormDataContentType()
}

func (s *RouterSuite) do(req *http.Request) (*http.Response, map[string]any) {
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

func (s *RouterSuite) TestRegistrationAndApprovalFlow() {
	// Register with one dependent and no documents.
	body, contentType := s.registerForm("111.111.111-11", "joao@email.com")
	req, _ := http.NewRequest(http.MethodPost, s.server.URL+"/register", body)
	req.Header.Set("Content-Type", contentType)

	resp, decoded := s.do(req)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	user := decoded["user"].(map[string]any)
	s.Equal(false, user["status"])

	deps := decoded["dependents"].([]any)
	s.Require().Len(deps, 1)
	ana := deps[0].(map[string]any)
	s.Equal("Ana", ana["name"])
	s.Equal(false, ana["status"])
	s.NotContains(ana, "certidaoNascimentoOuRGCPF")
	anaID := int64(ana["id"].(float64))

	// The same cpf again is rejected without creating anything.
	body, contentType = s.registerForm("111.111.111-11", "outro@email.com")
	req, _ = http.NewRequest(http.MethodPost, s.server.URL+"/register", body)
	req.Header.Set("Content-Type", contentType)
	resp, _ = s.do(req)
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)

	// Unapproved users cannot log in yet.
	login := func() (*http.Response, map[string]any) {
		payload := bytes.NewBufferString(`{"emailOrCpf":"joao@email.com","pass":"senha123"}`)
		req, _ := http.NewRequest(http.MethodPost, s.server.URL+"/auth/login", payload)
		req.Header.Set("Content-Type", "application/json")
		return s.do(req)
	}
	resp, _ = login()
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)

	// An admin approves the dependent.
	token := s.adminToken()
	req, _ = http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/dependents/%d/status?value=true", s.server.URL, anaID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, decoded = s.do(req)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, decoded["status"])

	// status=true now includes Ana, status=false does not.
	listNames := func(filter string) []string {
		req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/dependents?status="+filter, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := s.server.Client().Do(req)
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Require().Equal(http.StatusOK, resp.StatusCode)

		var list []map[string]any
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&list))
		names := make([]string, 0, len(list))
		for _, d := range list {
			names = append(names, d["name"].(string))
		}
		return names
	}
	s.Contains(listNames("true"), "Ana")
	s.NotContains(listNames("false"), "Ana")
}

func (s *RouterSuite) TestGuards() {
	token := s.adminToken()

	s.Run("admin routes reject missing tokens", func() {
		req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/users", nil)
		resp, _ := s.do(req)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("admin routes reject user tokens", func() {
		userToken, err := s.creds.IssueUserToken(5, "a@b.c", "", true)
		s.Require().NoError(err)

		req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/users", nil)
		req.Header.Set("Authorization", "Bearer "+userToken)
		resp, _ := s.do(req)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("user routes reject admin tokens minted with the user secret", func() {
		// A user token claiming to be admin fails the signature check.
		req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/users/5/dependents", nil)
		resp, _ := s.do(req)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	s.Run("admin token reaches admin routes", func() {
		req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := s.do(req)
		s.Equal(http.StatusOK, resp.StatusCode)
	})
}

func (s *RouterSuite) TestProfileUpdateIsSelfOnly() {
	body, contentType := s.registerForm("111.111.111-11", "alice@email.com")
	req, _ := http.NewRequest(http.MethodPost, s.server.URL+"/register", body)
	req.Header.Set("Content-Type", contentType)
	resp, decoded := s.do(req)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	aliceID := int64(decoded["user"].(map[string]any)["id"].(float64))

	token, err := s.creds.IssueUserToken(aliceID, "alice@email.com", "111.111.111-11", true)
	s.Require().NoError(err)

	updateForm := func() (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		s.Require().NoError(w.WriteField("email", "hijack@email.com"))
		s.Require().NoError(w.Close())
		return body, w.FormDataContentType()
	}

	s.Run("another user's profile is off-limits", func() {
		body, contentType := updateForm()
		url := fmt.Sprintf("%s/users/%d", s.server.URL, aliceID+1)
		req, _ := http.NewRequest(http.MethodPut, url, body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := s.do(req)
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("the own profile is editable", func() {
		body, contentType := updateForm()
		url := fmt.Sprintf("%s/users/%d", s.server.URL, aliceID)
		req, _ := http.NewRequest(http.MethodPut, url, body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, decoded := s.do(req)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Equal("hijack@email.com", decoded["email"])
	})
}

func (s *RouterSuite) TestDependentOwnershipOverHTTP() {
	// Register two users, approve the first, and try to touch the second
	// user's dependent with the first user's token.
	registerUser := func(cpf, email string) (userID int64, depID int64) {
		body, contentType := s.registerForm(cpf, email)
		req, _ := http.NewRequest(http.MethodPost, s.server.URL+"/register", body)
		req.Header.Set("Content-Type", contentType)
		resp, decoded := s.do(req)
		s.Require().Equal(http.StatusCreated, resp.StatusCode)

		user := decoded["user"].(map[string]any)
		deps := decoded["dependents"].([]any)
		s.Require().Len(deps, 1)
		return int64(user["id"].(float64)), int64(deps[0].(map[string]any)["id"].(float64))
	}

	aliceID, _ := registerUser("111.111.111-11", "alice@email.com")
	_, bobsDepID := registerUser("222.222.222-22", "bob@email.com")

	aliceToken, err := s.creds.IssueUserToken(aliceID, "alice@email.com", "111.111.111-11", true)
	s.Require().NoError(err)

	s.Run("path user id must match the token subject", func() {
		url := fmt.Sprintf("%s/users/%d/dependents/%d", s.server.URL, aliceID+1, bobsDepID)
		req, _ := http.NewRequest(http.MethodDelete, url, nil)
		req.Header.Set("Authorization", "Bearer "+aliceToken)
		resp, _ := s.do(req)
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("a foreign dependent under the own path is not found", func() {
		url := fmt.Sprintf("%s/users/%d/dependents/%d", s.server.URL, aliceID, bobsDepID)
		req, _ := http.NewRequest(http.MethodDelete, url, nil)
		req.Header.Set("Authorization", "Bearer "+aliceToken)
		resp, _ := s.do(req)
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}
