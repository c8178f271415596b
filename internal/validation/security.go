// Package validation guards the values that flow into subprocess command
// lines and outgoing admin requests.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var propertyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// BuildCommands is the allowlist of build tool executables.
var BuildCommands = map[string]bool{
	"mvn":      true,
	"mvnw":     true,
	"mvn.cmd":  true,
	"mvnw.cmd": true,
}

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	dangerous := []string{";", "&", "|", "$", "`", "<", ">", "\n", "\r", "\x00"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %q", char)
		}
	}
	return nil
}

// ValidateCommand validates a command name against an allowlist. Only the
// base name is compared, so "./mvnw" and "/opt/maven/bin/mvn" are accepted.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if !allowedCommands[filepath.Base(command)] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateProperty validates a key=value build property override.
func ValidateProperty(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("property %q must have the form key=value", kv)
	}
	if !propertyKeyPattern.MatchString(key) {
		return fmt.Errorf("property key %q contains invalid characters", key)
	}
	if err := ValidateArgument(value); err != nil {
		return fmt.Errorf("property %q: %w", key, err)
	}
	return nil
}

// ValidateHost rejects host names that could smuggle a path or query into
// an admin URL.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	for _, char := range []string{"/", "?", "#", "@", " ", "\\"} {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains invalid character: %q", char)
		}
	}
	return nil
}

// ValidateName validates an application, instance or file name sent to the
// admin endpoint.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(name, "&?#\n\r\x00") {
		return fmt.Errorf("name %q contains invalid characters", name)
	}
	return nil
}
