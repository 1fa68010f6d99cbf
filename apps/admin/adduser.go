package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	usr, err := cli.usrSvc.Save(context.Background(), nu)
	if err != nil {
		return errors.Wrap(err, "saving user")
	}
	fmt.Fprintf(cli.out, "user %q saved (id %s)\n", usr.Username, usr.ID)
	return nil
}
