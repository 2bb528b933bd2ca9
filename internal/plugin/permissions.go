package plugin

import "fmt"

// Access is a read/write permission level.
type Access string

// Access levels for filesystem and system permissions.
const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
	AccessNone  Access = "none"
)

// NetworkAccess is the network permission level.
type NetworkAccess string

// Network permission levels.
const (
	NetworkLocal    NetworkAccess = "local"
	NetworkInternet NetworkAccess = "internet"
	NetworkNone     NetworkAccess = "none"
)

// ShellAccess is the shell permission level.
type ShellAccess string

// Shell permission levels.
const (
	ShellRestricted ShellAccess = "restricted"
	ShellFull       ShellAccess = "full"
	ShellNone       ShellAccess = "none"
)

// Permissions is what a plugin declares it needs. Plugins all run in
// process, so these are reviewed and reported, not enforced.
type Permissions struct {
	Filesystem Access        `json:"filesystem,omitempty"`
	Network    NetworkAccess `json:"network,omitempty"`
	Shell      ShellAccess   `json:"shell,omitempty"`
	System     Access        `json:"system,omitempty"`
}

var permissionValues = map[string][]string{
	"filesystem": {string(AccessRead), string(AccessWrite), string(AccessNone)},
	"network":    {string(NetworkLocal), string(NetworkInternet), string(NetworkNone)},
	"shell":      {string(ShellRestricted), string(ShellFull), string(ShellNone)},
	"system":     {string(AccessRead), string(AccessWrite), string(AccessNone)},
}

// permissionKeys fixes the order violations are reported in.
var permissionKeys = []string{"filesystem", "network", "shell", "system"}

// ReviewPermissions returns a warning for every elevated permission.
func ReviewPermissions(p *Permissions) []string {
	if p == nil {
		return nil
	}
	var warnings []string
	if p.Filesystem == AccessWrite {
		warnings = append(warnings, "requests filesystem write access")
	}
	if p.Network == NetworkInternet {
		warnings = append(warnings, "requests internet access")
	}
	if p.Shell == ShellFull {
		warnings = append(warnings, "requests full shell access")
	}
	if p.System == AccessWrite {
		warnings = append(warnings, "requests system write access")
	}
	return warnings
}

func invalidPermission(key, value string) string {
	return fmt.Sprintf("Invalid %s permission: %q", key, value)
}
