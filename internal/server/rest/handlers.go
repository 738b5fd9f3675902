package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type signupRequest struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	RepeatPassword string `json:"repeat_password"`
	FullName       string `json:"full_name"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name,omitempty"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		IsSuperuser: u.IsSuperuser,
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
	}
}

type loginResponse struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	LastSeen  time.Time `json:"time"`
}

type envelope struct {
	Data any `json:"data"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decode(w, r, &req) {
		return
	}

	u, err := s.sessions.Signup(r.Context(), services.NewUser{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		RepeatPassword: req.RepeatPassword,
		FullName:       req.FullName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: newUserResponse(u)})
}

func (s *Server) signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.sessions.Signin(r.Context(), req.Email, req.Password, services.ClientInfo{
		IP:        s.clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	token, ok := s.accessToken(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"access": s.sessions.Verify(r.Context(), token)})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.sessions.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}

	cookie, err := s.sessions.Logout(r.Context(), req.RefreshToken)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: "logged out"})
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	token, ok := s.accessToken(w, r)
	if !ok {
		return
	}

	cookie, err := s.sessions.LogoutAll(r.Context(), token)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: "logged out everywhere"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	token, ok := s.accessToken(w, r)
	if !ok {
		return
	}

	u, err := s.sessions.CurrentUser(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: newUserResponse(u)})
}

func (s *Server) logins(w http.ResponseWriter, r *http.Request) {
	token, ok := s.accessToken(w, r)
	if !ok {
		return
	}

	list, err := s.sessions.Logins(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]loginResponse, 0, len(list))
	for _, l := range list {
		out = append(out, loginResponse{IP: l.IP, UserAgent: l.UserAgent, LastSeen: l.LastSeen})
	}
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

func (s *Server) healthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Service is available right now.",
	})
}

// accessToken reads the access token cookie, answering 403 when it is absent.
func (s *Server) accessToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	c, err := r.Cookie(s.cookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && c.Value == "") {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return "", false
	}
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed cookie")
		return "", false
	}
	return c.Value, true
}

func (s *Server) writeSession(w http.ResponseWriter, sess *services.Session) {
	http.SetCookie(w, sess.Cookie)
	writeJSON(w, http.StatusOK, envelope{Data: tokensResponse{
		AccessToken:  sess.Tokens.Access,
		RefreshToken: sess.Tokens.Refresh,
	}})
}
