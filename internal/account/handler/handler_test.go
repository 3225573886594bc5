package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	accountservice "btoflow/internal/account/service"
	accountstore "btoflow/internal/account/store"
	"btoflow/internal/account/store/revocation"
	httpapi "btoflow/internal/http"
	jwttoken "btoflow/internal/jwt_token"
	"btoflow/internal/platform/metrics"
	id "btoflow/pkg/domain"
)

// The suite drives the full router so the middleware chain, auth gating and
// the JSON error envelope are exercised together with the handler.
type AccountHandlerSuite struct {
	suite.Suite
	router http.Handler
	trl    *revocation.InMemoryTRL
}

func TestAccountHandlerSuite(t *testing.T) {
	suite.Run(t, new(AccountHandlerSuite))
}

var testMetrics = metrics.New()

const person = id.PersonID("S1234567A")

func (s *AccountHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := accountstore.NewInMemory()
	jwtService := jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")
	s.trl = revocation.NewInMemoryTRL()

	svc := accountservice.New(accounts, jwtService, s.trl, accountservice.WithLogger(logger))
	_, err := svc.CreateAccount(context.Background(), person, "Jamie Tan", 36, id.Married, id.RoleApplicant, "password")
	s.Require().NoError(err)

	handler := New(svc, jwtService, logger, testMetrics, jwttoken.NewJWTServiceAdapter(jwtService), s.trl)
	s.router = httpapi.NewRouter(logger, testMetrics, handler)
}

func (s *AccountHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AccountHandlerSuite) login(password string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"person_id": person.String(),
		"password":  password,
	})
}

func (s *AccountHandlerSuite) TestLogin() {
	s.Run("valid credentials issue a token", func() {
		w := s.login("password")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp struct {
			AccessToken string `json:"access_token"`
			Role        string `json:"role"`
			Name        string `json:"name"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.NotEmpty(resp.AccessToken)
		s.Equal("applicant", resp.Role)
		s.Equal("Jamie Tan", resp.Name)
	})

	s.Run("wrong password is unauthorized", func() {
		w := s.login("wrong")
		s.Require().Equal(http.StatusUnauthorized, w.Code)

		var resp struct {
			Error string `json:"error"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal("unauthorized", resp.Error)
	})

	s.Run("malformed body is a bad request", func() {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *AccountHandlerSuite) TestMe() {
	w := s.login("password")
	s.Require().Equal(http.StatusOK, w.Code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &login))

	s.Run("returns the authenticated account", func() {
		w := s.do(http.MethodGet, "/me", login.AccessToken, nil)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(person.String(), resp.ID)
		s.Equal("Jamie Tan", resp.Name)
	})

	s.Run("rejects a missing token", func() {
		w := s.do(http.MethodGet, "/me", "", nil)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("rejects a garbage token", func() {
		w := s.do(http.MethodGet, "/me", "not-a-token", nil)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *AccountHandlerSuite) TestLogoutRevokesToken() {
	w := s.login("password")
	s.Require().Equal(http.StatusOK, w.Code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &login))

	w = s.do(http.MethodPost, "/auth/logout", login.AccessToken, nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/me", login.AccessToken, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AccountHandlerSuite) TestChangePassword() {
	w := s.login("password")
	s.Require().Equal(http.StatusOK, w.Code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &login))

	w = s.do(http.MethodPost, "/auth/password", login.AccessToken, map[string]string{
		"old_password": "password",
		"new_password": "different",
	})
	s.Require().Equal(http.StatusNoContent, w.Code)

	s.Require().Equal(http.StatusUnauthorized, s.login("password").Code)
	s.Require().Equal(http.StatusOK, s.login("different").Code)
}

func (s *AccountHandlerSuite) TestHealthz() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
}
