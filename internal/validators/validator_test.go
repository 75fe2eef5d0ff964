package validators

import (
	"errors"
	"testing"

	"github.com/anonto42/yatube/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_PostForm(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.PostForm{Text: "hello"}))
	assert.NoError(t, v.Validate(&models.PostForm{Text: "hello", Group: "3"}))

	err := v.Validate(&models.PostForm{})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"text": "This field is required."}, FieldErrors(err))

	err = v.Validate(&models.PostForm{Text: "x", Group: "abc"})
	assert.Equal(t, map[string]string{"group": "Select a valid choice."}, FieldErrors(err))
}

func TestValidate_SignupForm(t *testing.T) {
	v := NewValidator()

	ok := &models.SignupForm{Username: "leo.t", Password1: "longenough", Password2: "longenough"}
	assert.NoError(t, v.Validate(ok))

	bad := &models.SignupForm{
		Username:  "bad name",
		Email:     "nope",
		Password1: "short",
		Password2: "other",
	}
	errs := FieldErrors(v.Validate(bad))
	assert.Contains(t, errs["username"], "Enter a valid username")
	assert.Equal(t, "Enter a valid email address.", errs["email"])
	assert.Equal(t, "Ensure this value has at least 8 characters.", errs["password1"])
	assert.Equal(t, "The two password fields didn't match.", errs["password2"])
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	assert.Nil(t, FieldErrors(nil))
	assert.Equal(t, map[string]string{NonFieldErrors: "boom"}, FieldErrors(errors.New("boom")))
}
