package cli

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadConfigArgs reads the goread config file and returns parsed arguments.
// Config file location: GOREAD_CONFIG_PATH env var, or ~/.goread.
// Format: one flag per line, # comments, empty lines ignored.
// Returns nil if no config file found.
func LoadConfigArgs() []string {
	path := os.Getenv("GOREAD_CONFIG_PATH")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".goread")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var args []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args = append(args, line)
	}
	return args
}

// mergeConfigArgs places config file flags right after the subcommand
// name so that flags given on the command line, which come later, win.
func mergeConfigArgs(cfgArgs, args []string) []string {
	if len(cfgArgs) == 0 {
		return args
	}
	merged := make([]string, 0, len(cfgArgs)+len(args))
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		merged = append(merged, args[0])
		merged = append(merged, cfgArgs...)
		return append(merged, args[1:]...)
	}
	merged = append(merged, cfgArgs...)
	return append(merged, args...)
}
