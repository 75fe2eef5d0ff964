package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/yatube/internal/handlers"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/testutil"
	"github.com/anonto42/yatube/internal/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	app := newTestApp(t)

	rec := app.get(t, "/auth/signup/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "users/signup.html", app.renders.last(t).Name)

	rec = app.postForm(t, "/auth/signup/", url.Values{
		"first_name": {"Leo"},
		"last_name":  {"Tolstoy"},
		"username":   {"leo"},
		"email":      {"leo@example.com"},
		"password1":  {"war-and-peace"},
		"password2":  {"war-and-peace"},
	}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.NotNil(t, sessionCookie(rec))

	var user models.User
	require.NoError(t, app.db.Where("username = ?", "leo").First(&user).Error)
	assert.Equal(t, "Leo Tolstoy", user.FullName())
	assert.NotEqual(t, "war-and-peace", user.Password)
}

func TestSignup_Invalid(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "taken")

	rec := app.postForm(t, "/auth/signup/", url.Values{
		"username":  {"taken"},
		"password1": {"long-password"},
		"password2": {"different"},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	form := app.renders.last(t).Data["form"].(*handlers.Form)
	assert.Equal(t, "A user with that username already exists.", form.Errors["username"])
	assert.Equal(t, "The two password fields didn't match.", form.Errors["password2"])
	assert.Nil(t, sessionCookie(rec))

	var n int64
	require.NoError(t, app.db.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	app.postForm(t, "/auth/signup/", url.Values{
		"username":  {"leo"},
		"password1": {"war-and-peace"},
		"password2": {"war-and-peace"},
	}, nil)

	rec := app.get(t, "/auth/login/?next=/create/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/create/", app.renders.last(t).Data["next"])

	rec = app.postForm(t, "/auth/login/", url.Values{"username": {"leo"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	form := app.renders.last(t).Data["form"].(*handlers.Form)
	assert.Contains(t, form.Errors[validators.NonFieldErrors], "correct username and password")

	rec = app.postForm(t, "/auth/login/", url.Values{
		"username": {"leo"},
		"password": {"war-and-peace"},
		"next":     {"/create/"},
	}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/create/", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	// the cookie signs the user in
	req := httptestGet("/create/")
	req.AddCookie(cookie)
	rec = app.do(t, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.postForm(t, "/auth/login/", url.Values{
		"username": {"leo"},
		"password": {"war-and-peace"},
		"next":     {"https://evil.example/"},
	}, nil)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	leo := testutil.CreateUser(t, app.db, "leo")

	rec := app.postForm(t, "/auth/logout/", nil, leo)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "users/logged_out.html", app.renders.last(t).Name)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestFirebaseLogin(t *testing.T) {
	verifier := fakeVerifier{tokens: map[string]*auth.Token{
		"good-token": {UID: "fb-1", Claims: map[string]interface{}{"email": "fire.fly@example.com", "name": "Fire Fly"}},
	}}
	app := newTestApp(t, withFirebase(verifier))

	rec := app.postForm(t, "/auth/firebase/", url.Values{"id_token": {"bad-token"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.postForm(t, "/auth/firebase/", url.Values{"id_token": {"good-token"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	require.NotNil(t, sessionCookie(rec))

	var user models.User
	require.NoError(t, app.db.Where("firebase_uid = ?", "fb-1").First(&user).Error)
	assert.Equal(t, "fire.fly", user.Username)
	assert.Equal(t, "Fire", user.FirstName)

	// a second login reuses the account
	app.postForm(t, "/auth/firebase/", url.Values{"id_token": {"good-token"}}, nil)
	var n int64
	require.NoError(t, app.db.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestFirebaseLogin_LinksVerifiedEmail(t *testing.T) {
	verifier := fakeVerifier{tokens: map[string]*auth.Token{
		"verified": {UID: "fb-owner", Claims: map[string]interface{}{"email": "leo@example.com", "email_verified": true}},
	}}
	app := newTestApp(t, withFirebase(verifier))
	leo := testutil.CreateUser(t, app.db, "leo")
	require.NoError(t, app.db.Model(leo).Update("email", "leo@example.com").Error)

	rec := app.postForm(t, "/auth/firebase/", url.Values{"id_token": {"verified"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)

	var got models.User
	require.NoError(t, app.db.First(&got, leo.ID).Error)
	require.NotNil(t, got.FirebaseUID)
	assert.Equal(t, "fb-owner", *got.FirebaseUID)
}

func TestFirebaseLogin_UnverifiedEmailDoesNotLink(t *testing.T) {
	verifier := fakeVerifier{tokens: map[string]*auth.Token{
		"unverified": {UID: "fb-other", Claims: map[string]interface{}{"email": "leo@example.com", "email_verified": false}},
	}}
	app := newTestApp(t, withFirebase(verifier))
	leo := testutil.CreateUser(t, app.db, "leo")
	require.NoError(t, app.db.Model(leo).Update("email", "leo@example.com").Error)

	rec := app.postForm(t, "/auth/firebase/", url.Values{"id_token": {"unverified"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)

	var got models.User
	require.NoError(t, app.db.First(&got, leo.ID).Error)
	assert.Nil(t, got.FirebaseUID)

	var created models.User
	require.NoError(t, app.db.Where("firebase_uid = ?", "fb-other").First(&created).Error)
	assert.NotEqual(t, leo.ID, created.ID)
	assert.Equal(t, "leo1", created.Username)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	claims, err := app.sessions.ParseToken(cookie.Value)
	require.NoError(t, err)
	assert.NotEqual(t, leo.ID, claims.UserID)
}

func TestFirebaseLogin_Disabled(t *testing.T) {
	app := newTestApp(t)
	rec := app.postForm(t, "/auth/firebase/", url.Values{"id_token": {"x"}}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
