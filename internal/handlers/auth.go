package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/internal/validators"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const badCredentials = "Please enter a correct username and password. Note that both fields may be case-sensitive."

var usernameUnsafe = regexp.MustCompile(`[^\pL\pN_.@+-]+`)

// signupField describes one input of the signup form.
type signupField struct {
	Name  string
	Label string
	Type  string
}

var signupFields = []signupField{
	{"first_name", "First name", "text"},
	{"last_name", "Last name", "text"},
	{"username", "Username", "text"},
	{"email", "Email address", "email"},
	{"password1", "Password", "password"},
	{"password2", "Password confirmation", "password"},
}

// AuthHandler handles signup, login and logout
type AuthHandler struct {
	userRepository repositories.UserRepository
	sessions       *middleware.Sessions
	firebaseAuth   middleware.TokenVerifier
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables the Firebase login route.
func NewAuthHandler(userRepo repositories.UserRepository, sessions *middleware.Sessions, firebaseAuth middleware.TokenVerifier) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		sessions:       sessions,
		firebaseAuth:   firebaseAuth,
	}
}

// RegisterAuthRoutes registers authentication-related routes. limit guards
// the credential-checking POSTs.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, limit echo.MiddlewareFunc) {
	g.GET("/signup/", h.Signup)
	g.POST("/signup/", h.Signup, limit)
	g.GET("/login/", h.Login)
	g.POST("/login/", h.Login, limit)
	g.Match([]string{http.MethodGet, http.MethodPost}, "/logout/", h.Logout)
	g.POST("/firebase/", h.FirebaseLogin, limit)
}

// Signup creates a local account, signs it in and redirects to the index.
func (h *AuthHandler) Signup(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return h.renderSignup(c, newForm())
	}

	var req models.SignupForm
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	form := newForm()
	form.Values["first_name"] = req.FirstName
	form.Values["last_name"] = req.LastName
	form.Values["username"] = req.Username
	form.Values["email"] = req.Email
	if err := c.Validate(&req); err != nil {
		form.Errors = validators.FieldErrors(err)
	}

	ctx := c.Request().Context()
	if form.Errors["username"] == "" {
		_, err := h.userRepository.GetUserByUsername(ctx, req.Username)
		switch {
		case err == nil:
			form.AddError("username", "A user with that username already exists.")
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}
	}
	if !form.Valid() {
		return h.renderSignup(c, form)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return err
	}
	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) renderSignup(c echo.Context, form *Form) error {
	return c.Render(http.StatusOK, "users/signup.html", echo.Map{
		"form":   form,
		"fields": signupFields,
	})
}

// Login checks the credentials and redirects to "next" when it is a local path.
func (h *AuthHandler) Login(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return h.renderLogin(c, newForm(), c.QueryParam("next"))
	}

	var req models.LoginForm
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	next := c.FormValue("next")

	form := newForm()
	form.Values["username"] = req.Username
	if err := c.Validate(&req); err != nil {
		form.Errors = validators.FieldErrors(err)
		return h.renderLogin(c, form, next)
	}

	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), req.Username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if user == nil || user.Password == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		form.AddError(validators.NonFieldErrors, badCredentials)
		return h.renderLogin(c, form, next)
	}

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, middleware.SafeNext(next, "/"))
}

func (h *AuthHandler) renderLogin(c echo.Context, form *Form, next string) error {
	return c.Render(http.StatusOK, "users/login.html", echo.Map{
		"form": form,
		"next": next,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c)
	return c.Render(http.StatusOK, "users/logged_out.html", nil)
}

// FirebaseLogin exchanges a Firebase ID token for a site session. The account
// is found by Firebase UID, then by verified email, and created when neither
// matches. An unverified email never links an existing account.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Firebase login is not enabled")
	}
	idToken := middleware.IDToken(c)
	if idToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing ID token")
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}
	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	verified, _ := token.Claims["email_verified"].(bool)

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, token.UID)
	if errors.Is(err, repositories.ErrNotFound) && email != "" && verified {
		user, err = h.userRepository.GetUserByEmail(ctx, email)
		if err == nil {
			uid := token.UID
			user.FirebaseUID = &uid
			err = h.userRepository.UpdateUser(ctx, user)
		}
	}
	if errors.Is(err, repositories.ErrNotFound) {
		user, err = h.createFirebaseUser(c, token.UID, email, name)
	}
	if err != nil {
		return err
	}

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, middleware.SafeNext(c.FormValue("next"), "/"))
}

func (h *AuthHandler) createFirebaseUser(c echo.Context, uid, email, name string) (*models.User, error) {
	ctx := c.Request().Context()
	base := usernameUnsafe.ReplaceAllString(strings.SplitN(email, "@", 2)[0], "")
	if base == "" {
		base = "user"
	}
	if len(base) > 140 {
		base = base[:140]
	}

	username := base
	for i := 1; ; i++ {
		_, err := h.userRepository.GetUserByUsername(ctx, username)
		if errors.Is(err, repositories.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		username = fmt.Sprintf("%s%d", base, i)
	}

	first, last, _ := strings.Cut(name, " ")
	user := &models.User{
		Username:    username,
		FirstName:   first,
		LastName:    last,
		Email:       email,
		FirebaseUID: &uid,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
