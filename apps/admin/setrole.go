package main

import (
	"context"
	"fmt"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/audit"
	"github.com/trezcool/uninotes/core/user"
)

// operatorEmail is the acting admin of audit entries recorded from the command line.
const operatorEmail = "cli@uninotes"

// setRole sets any role, super_admin included. Changes are recorded in the audit log.
func (cli *commandLine) setRole(email, role string) error {
	ctx := context.Background()
	change, err := cli.users.SetRole(ctx, email, user.Role(core.CleanString(role, true /* lower */)))
	if err != nil {
		return err
	}
	if !change.Changed() {
		fmt.Fprintf(cli.writer(), "%s is already %s\n", change.Email, change.To)
		return nil
	}

	action := audit.ActionDemoteAdmin
	if change.To.IsModerator() {
		action = audit.ActionPromoteUser
	}
	if err = cli.audit.Append(ctx, audit.NewEntry(operatorEmail, action, change.UserID)); err != nil {
		logger.Printf("appending audit entry: %v", err)
	}
	fmt.Fprintf(cli.writer(), "%s: %s -> %s\n", change.Email, change.From, change.To)
	return nil
}

func (cli *commandLine) printAudit(limit int) error {
	entries, err := cli.audit.List(context.Background(), limit)
	if err != nil {
		return err
	}
	w := cli.writer()
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.ActingAdminEmail, e.ActionType, e.TargetID)
	}
	return nil
}
