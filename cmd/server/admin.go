package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"libraryCirculation/internal/accounts"
	"libraryCirculation/internal/catalog"
	"libraryCirculation/internal/config"
	"libraryCirculation/internal/db"
	"libraryCirculation/internal/policy"
	"libraryCirculation/models"
)

// operator is the identity of whoever runs admin commands with direct database access.
var operator = policy.Caller{Name: "cli", Role: models.RoleAdmin}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or roll back database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied migration versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDefaults()
			if err != nil {
				return err
			}
			d, _, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer d.Close()
			versions, err := db.AppliedVersions(d)
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Fprintf(cmd.OutOrStdout(), "%04d\n", v)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Revert the last applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDefaults()
			if err != nil {
				return err
			}
			d, _, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer d.Close()
			v, err := db.RollbackLast(d)
			if err != nil {
				return err
			}
			if v == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %04d\n", v)
			return nil
		},
	})
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage library accounts",
	}
	var n accounts.NewUser
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account, prompting for its password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDefaults()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			n.Password = pw

			d, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer d.Close()
			u, err := accounts.NewService(store, cfg.Auth.AdminRegistrationCode, newLogger(cfg)).Bootstrap(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %d)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&n.Name, "name", "", "full name")
	add.Flags().StringVar(&n.Email, "email", "", "login email")
	add.Flags().StringVar(&n.Role, "role", string(models.RoleStaff), "admin or staff")
	add.Flags().StringVar(&n.Campus, "campus", models.Campuses[0], "campus: "+strings.Join(models.Campuses, ", "))
	add.Flags().StringVar(&n.Grade, "grade", "", "grade, optional")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("email")
	cmd.AddCommand(add)
	return cmd
}

// readPassword reads a password without echo from a terminal, or a single
// line when input is piped.
func readPassword(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print circulation reports",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "unreturned",
		Short: "Borrowed books per borrower grade, as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDefaults()
			if err != nil {
				return err
			}
			d, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer d.Close()
			report, err := catalog.NewService(store, catalog.WithLogger(newLogger(cfg))).UnreturnedByGrade(cmd.Context(), operator)
			if err != nil {
				return err
			}
			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(map[string]any{"report": report}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	})
	return cmd
}
