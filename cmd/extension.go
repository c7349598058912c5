package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

// Environment of the extensions, they receive the journal selected by the global flags.
const (
	EnvDatabasePath = "TJ_DATABASE_PATH"
	EnvUserID       = "TJ_USER_ID"
	EnvAccountID    = "TJ_ACCOUNT_ID"
	EnvLogLevel     = "TJ_LOG_LEVEL"
)

// RunExtension attempts to find and execute an external tj-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "tj-" + subcommand

	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		slog.Debug("extension not found in PATH", "command", externalCmdName, "error", err)
		return false, 0
	}

	cfg, err := Config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading the configuration: %v\n", err)
		return true, 1
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// global flags are passed as environment variables
	cmd.Env = append(os.Environ(),
		EnvDatabasePath+"="+cfg.DatabasePath,
		EnvUserID+"="+strconv.FormatInt(cfg.UserID, 10),
		EnvAccountID+"="+strconv.FormatInt(cfg.AccountID, 10),
		EnvLogLevel+"="+cfg.LogLevel,
	)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}
