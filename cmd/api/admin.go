package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"solsub-admin/internal/auth"
	"solsub-admin/internal/database"
)

var (
	adminEmail string
	adminName  string
	adminMFA   bool

	stdinReader = bufio.NewReader(os.Stdin)
)

func newCreateAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a dashboard admin account",
		Long:  `Create an admin account. The password is read from the terminal, or from stdin when it is not a terminal.`,
		RunE:  runCreateAdmin,
	}

	cmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&adminName, "name", "", "Display name")
	cmd.Flags().BoolVar(&adminMFA, "mfa", false, "Enroll a TOTP secret and print its provisioning URL")
	cmd.MarkFlagRequired("email")

	return cmd
}

func newSetPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Reset an admin password and unlock the account",
		RunE:  runSetPassword,
	}

	cmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address (required)")
	cmd.MarkFlagRequired("email")

	return cmd
}

// promptPassword reads a secret without echo when stdin is a terminal.
func promptPassword(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}

	text, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// readNewPassword prompts for a password, confirming it on a terminal.
func readNewPassword() (string, error) {
	password, err := promptPassword("Password")
	if err != nil {
		return "", err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return password, nil
	}

	confirm, err := promptPassword("Confirm password")
	if err != nil {
		return "", err
	}
	if confirm != password {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func openDatabase() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return initRelational(cfg)
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	if err := openDatabase(); err != nil {
		return err
	}
	defer closeDatabase()

	password, err := readNewPassword()
	if err != nil {
		return err
	}

	admin, key, err := auth.CreateAdmin(database.DB, adminEmail, adminName, password, adminMFA)
	if errors.Is(err, auth.ErrAdminExists) {
		return fmt.Errorf("an admin with email %s already exists", strings.ToLower(adminEmail))
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen, color.Bold).Fprintf(out, "✅ Admin %s created (id %d)\n", admin.Email, admin.ID)
	if key != nil {
		color.New(color.FgCyan).Fprintln(out, "Enroll this TOTP secret in an authenticator app:")
		fmt.Fprintf(out, "  Secret: %s\n", key.Secret())
		fmt.Fprintf(out, "  URL:    %s\n", key.URL())
	}
	return nil
}

func runSetPassword(cmd *cobra.Command, args []string) error {
	if err := openDatabase(); err != nil {
		return err
	}
	defer closeDatabase()

	password, err := readNewPassword()
	if err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(adminEmail))
	admin, err := auth.SetPassword(database.DB, email, password)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no admin with email %s", email)
	}
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "✅ Password updated for %s; account unlocked\n", admin.Email)
	return nil
}
