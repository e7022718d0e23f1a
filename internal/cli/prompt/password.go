package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// ErrPasswordMismatch indicates passwords don't match.
var ErrPasswordMismatch = errors.New("passwords do not match")

// Password prompts for a password without echoing it to the terminal.
// When stdin is not a terminal (piped input, scripted provisioning),
// it falls back to reading a single line.
func Password(label string) (string, error) {
	fmt.Print(label)

	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PasswordWithValidation prompts for a password, re-prompting on a
// terminal if it is shorter than minLength. Piped input is accepted
// as-is since there is no way to re-prompt a non-interactive reader.
func PasswordWithValidation(label string, minLength int) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return Password(label)
	}

	for {
		pw, err := Password(label)
		if err != nil {
			return "", err
		}
		if len(pw) < minLength {
			fmt.Printf("password must be at least %d characters\n", minLength)
			continue
		}
		return pw, nil
	}
}

// PasswordWithConfirmation prompts for a password and a confirmation,
// returning ErrPasswordMismatch if they differ.
func PasswordWithConfirmation(label, confirmLabel string, minLength int) (string, error) {
	password, err := PasswordWithValidation(label, minLength)
	if err != nil {
		return "", err
	}

	confirm, err := Password(confirmLabel)
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", ErrPasswordMismatch
	}

	return password, nil
}

// NewPassword prompts for a new password with confirmation, using a
// minimum length of 8.
func NewPassword() (string, error) {
	return PasswordWithConfirmation("Password: ", "Confirm password: ", 8)
}
