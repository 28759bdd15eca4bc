package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/maoni/core"
	"github.com/trezcool/maoni/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if name = core.CleanString(name); name == "" {
		name = uname
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	now := time.Now().UTC()
	exists := true
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		exists = false
		usr = user.User{Name: name, CreatedAt: now}
	}

	usr.Username = uname
	usr.Email = email
	usr.IsActive = true
	usr.UpdatedAt = now
	if isAdmin && !usr.HasRole(user.RoleAdmin) {
		usr.Roles = append(usr.Roles, user.RoleAdmin)
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	action := "created"
	if exists {
		action = "updated"
	}
	fmt.Fprintf(cli.out, "user %q %s\n", uname, action)
	return nil
}
