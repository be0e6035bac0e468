package main

import (
	"context"
	"fmt"

	"github.com/trezcool/uninotes/core/user"
)

// addUser signs up a new user with the `user` role.
func (cli *commandLine) addUser(na user.NewAccount) error {
	p, err := cli.accounts.SignUp(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.writer(), "created user %s <%s>\n", p.ID, p.Email)
	return nil
}
