package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func stubPasswords(t *testing.T, pw ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(pw) {
			return nil, errors.New("no more input")
		}
		i++
		return []byte(pw[i-1]), nil
	}
}

type fakeCreator struct {
	got       services.NewUser
	superuser bool
	err       error
}

func (f *fakeCreator) Create(_ context.Context, n services.NewUser, superuser bool) (*models.User, error) {
	f.got, f.superuser = n, superuser
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: "u1", Username: n.Username}, nil
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  root \n"), "Username", &out)
	require.NoError(t, err)
	assert.Equal(t, "root", got)
	assert.Equal(t, "Username: ", out.String())

	got, err = GetSimpleText(rdr("lastline"), "Email", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Email", &out)
	assert.Error(t, err)
}

func TestGetPassword_Error(t *testing.T) {
	stubPasswords(t)
	var out bytes.Buffer
	_, err := GetPassword("Password", &out)
	assert.Error(t, err)
}

func TestCreateSuperuser(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")
	f := &fakeCreator{}
	var out bytes.Buffer

	err := CreateSuperuser(context.Background(), f, rdr("root\nroot@x.com\nRoot User\n"), &out)
	require.NoError(t, err)

	assert.True(t, f.superuser)
	assert.Equal(t, services.NewUser{
		Username:       "root",
		Email:          "root@x.com",
		FullName:       "Root User",
		Password:       "s3cret",
		RepeatPassword: "s3cret",
	}, f.got)
	assert.Contains(t, out.String(), "Superuser root created")
}

func TestCreateSuperuser_ServiceError(t *testing.T) {
	stubPasswords(t, "a", "a")
	f := &fakeCreator{err: common.ErrAlreadyExists}
	var out bytes.Buffer

	err := CreateSuperuser(context.Background(), f, rdr("root\nroot@x.com\n\n"), &out)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreateSuperuser_InputError(t *testing.T) {
	stubPasswords(t)
	err := CreateSuperuser(context.Background(), &fakeCreator{}, rdr("root\n"), &bytes.Buffer{})
	assert.Error(t, err)
}
