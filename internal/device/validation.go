package device

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/growctl/internal/actuator"
)

const maxNameLength = 64

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// hostPattern accepts DNS names such as "plug-1.lan".
var hostPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?)*$`)

// Validate checks that a device is complete and addressable.
func Validate(d Device) error {
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("%w: id %q", ErrInvalidDevice, d.ID)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidDevice, maxNameLength)
	}
	if !actuator.ValidMethod(d.ControlMethod) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, d.ControlMethod)
	}
	return ValidateTarget(d.ControlMethod, d.IPAddress)
}

// ValidateTarget checks that target can be used with method.
func ValidateTarget(method, target string) error {
	if target == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidTarget)
	}

	if method == actuator.MethodRelay {
		pin, err := strconv.Atoi(target)
		if err != nil || pin < 0 {
			return fmt.Errorf("%w: relay pin %q", ErrInvalidTarget, target)
		}
		return nil
	}

	host := target
	if h, port, err := net.SplitHostPort(target); err == nil {
		if p, perr := strconv.Atoi(port); perr != nil || p < 1 || p > 65535 {
			return fmt.Errorf("%w: port in %q", ErrInvalidTarget, target)
		}
		host = h
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if strings.Contains(host, ":") || !hostPattern.MatchString(host) {
		return fmt.Errorf("%w: host %q", ErrInvalidTarget, target)
	}
	return nil
}
