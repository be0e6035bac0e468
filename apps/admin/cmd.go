package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	roleSetter interface {
		SetRole(ctx context.Context, email string, role user.Role) (user.RoleChange, error)
	}

	accountCreator interface {
		SignUp(ctx context.Context, na user.NewAccount) (user.Profile, error)
	}

	commandLine struct {
		db       *sql.DB
		users    roleSetter
		accounts accountCreator
		audit    audit.Store
		out      io.Writer
	}
)

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo...)")
	fmt.Println("  setrole -email EMAIL -role user|admin|super_admin - set the role of a user")
	fmt.Println("  adduser -email EMAIL -name NAME -faculty ID -prodi ID - sign up a user, the password is prompted next")
	fmt.Println("  audit [-n N] - print the newest moderation audit entries")
}

func (cli *commandLine) writer() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleEmail := setRoleCmd.String("email", "", "The user's email.")
	setRoleRole := setRoleCmd.String("role", "", "The new role: user, admin or super_admin.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserFaculty := addUserCmd.String("faculty", "", "The id of the user's faculty.")
	addUserProdi := addUserCmd.String("prodi", "", "The id of the user's study program.")

	auditCmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	auditLimit := auditCmd.Int("n", 20, "The number of entries to print. 0 prints all kept entries.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleEmail == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleEmail, *setRoleRole)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" || *addUserFaculty == "" || *addUserProdi == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewAccount{
			FullName:        *addUserName,
			Email:           *addUserEmail,
			FacultyID:       *addUserFaculty,
			ProdiID:         *addUserProdi,
			Password:        string(pwd),
			PasswordConfirm: string(pwd),
		})

	case "audit":
		if err := auditCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.printAudit(*auditLimit)

	default:
		cli.printUsage()
		return errHelp
	}
}
