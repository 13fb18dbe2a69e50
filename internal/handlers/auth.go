package handlers

import (
	"errors"
	"net/http"
	"strings"

	"dbsite/internal/constants"
	"dbsite/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) ShowLoginPage(c *gin.Context) {
	render(c, http.StatusOK, "login.html", gin.H{
		"next": safeNext(c.Query("next")),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	next := safeNext(c.PostForm("next"))
	username := c.PostForm("username")

	user, err := h.authService.Authenticate(username, c.PostForm("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		render(c, http.StatusUnauthorized, "login.html", gin.H{
			"next":     next,
			"username": username,
			"error":    "Please enter a correct username and password.",
		})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.SessionKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		handleError(c, err)
		return
	}
	loggerFrom(c).Info("user logged in", zap.String("username", user.Username))
	c.Redirect(http.StatusFound, next)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}

// safeNext only allows redirects to paths on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
