// Package admin implements the operator commands of the service.
package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// UserCreator is satisfied by services.UserService.
type UserCreator interface {
	Create(ctx context.Context, n services.NewUser, superuser bool) (*models.User, error)
}

// PromptSuperuser asks for the account details of a new superuser. The
// password is asked twice without echo.
func PromptSuperuser(reader *bufio.Reader, w io.Writer) (services.NewUser, error) {
	var (
		n   services.NewUser
		err error
	)
	if n.Username, err = GetSimpleText(reader, "Username", w); err != nil {
		return n, err
	}
	if n.Password, err = GetPassword("Password", w); err != nil {
		return n, err
	}
	if n.RepeatPassword, err = GetPassword("Repeat password", w); err != nil {
		return n, err
	}
	if n.Email, err = GetSimpleText(reader, "Email", w); err != nil {
		return n, err
	}
	if n.FullName, err = GetSimpleText(reader, "Full name", w); err != nil {
		return n, err
	}
	return n, nil
}

// CreateSuperuser prompts for the details and stores the account.
func CreateSuperuser(ctx context.Context, users UserCreator, reader *bufio.Reader, w io.Writer) error {
	n, err := PromptSuperuser(reader, w)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	u, err := users.Create(ctx, n, true)
	if err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}

	fmt.Fprintf(w, "Superuser %s created (id %s)\n", u.Username, u.ID)
	return nil
}
