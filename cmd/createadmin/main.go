// Command createadmin creates or updates an admin user directly against
// the credential store, bypassing the web registration workflow. It
// reuses the same hasher and repository the service runs with.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"secureauth/api/internal/config"
	"secureauth/api/internal/database"
	"secureauth/api/internal/log"
	"secureauth/api/internal/repository"
	"secureauth/api/internal/security"
	"secureauth/api/internal/service"
)

// readPassword is a seam so the prompt can be stubbed away from a tty.
var readPassword = term.ReadPassword

func main() {
	var (
		username       = flag.String("username", os.Getenv("ADMIN_USERNAME"), "admin username (env ADMIN_USERNAME)")
		email          = flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email (env ADMIN_EMAIL)")
		password       = flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (env ADMIN_PASSWORD); prompted when empty")
		updateExisting = flag.Bool("update-existing", false, "update password and role of an existing user instead of failing")
	)
	flag.Parse()

	if err := run(*username, *email, *password, *updateExisting); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(username, email, password string, updateExisting bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(cfg.Environment)

	reader := bufio.NewReader(os.Stdin)
	if username == "" {
		username, err = promptLine(reader, "Username: ")
		if err != nil {
			return err
		}
	}
	if email == "" {
		email, err = promptLine(reader, "Email: ")
		if err != nil {
			return err
		}
	}
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	users := repository.NewUserRepository(pool)
	hasher := security.NewHasher(cfg.Hasher)
	auth := service.NewAuthService(users, nil, hasher, logger)

	created, err := auth.BootstrapAdmin(ctx, service.BootstrapAdminInput{
		Username:       username,
		Email:          email,
		Password:       password,
		UpdateExisting: updateExisting,
	})
	switch {
	case errors.Is(err, service.ErrAdminIdentityConflict):
		return errors.New("the provided username and email belong to different existing users; resolve and retry")
	case errors.Is(err, service.ErrAdminExists):
		return errors.New("user with that username or email already exists; re-run with -update-existing to update password and role")
	case err != nil:
		return err
	}

	if created {
		fmt.Println("Admin user created successfully.")
	} else {
		fmt.Println("Existing user updated to admin and password reset.")
	}
	return nil
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}

	fmt.Print("Repeat for confirmation: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
