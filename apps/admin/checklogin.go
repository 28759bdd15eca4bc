package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trezcool/maoni/core/user"
)

var errWrongPassword = errors.New("wrong password")

// checkLogin tells why a user can or cannot log in, without recording the login.
func (cli *commandLine) checkLogin(uname, pwd string) error {
	usr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: strings.ToLower(strings.TrimSpace(uname))})
	if err != nil {
		return err
	}
	if len(usr.PasswordHash) == 0 {
		return fmt.Errorf("%q has no password set", usr.Username)
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return errWrongPassword
	}
	if !usr.IsActive {
		return user.ErrAccountDeactivated
	}
	fmt.Fprintf(cli.out, "ok: %q can log in (roles: %s)\n", usr.Username, strings.Join(usr.Roles, ", "))
	return nil
}
