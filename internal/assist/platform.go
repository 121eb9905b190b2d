package assist

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
)

// installRequest matches inputs like "install htop" or "setup nginx".
var installRequest = regexp.MustCompile(`(?i)^\s*(?:install|setup)\s+([a-zA-Z0-9._+\-]+)\b`)

// parseInstallRequest returns the package name when the input is an
// install/setup request, and "" otherwise.
func parseInstallRequest(input string) string {
	m := installRequest.FindStringSubmatch(input)
	if m == nil {
		return ""
	}
	return m[1]
}

// osReleasePath is a test seam; production reads /etc/os-release.
var osReleasePath = "/etc/os-release"

// installCommandsFor phrases package installation for the given platform.
func installCommandsFor(goos, pkg string) string {
	switch goos {
	case "linux":
		return linuxInstallCommands(pkg)
	case "darwin":
		return fmt.Sprintf(`To install %[1]s on macOS, you need Homebrew installed. If you don't have Homebrew, install it first:

`+"```bash"+`
/bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)"
`+"```"+`

Then install %[1]s:

`+"```bash"+`
brew install %[1]s
`+"```"+`

These commands install Homebrew (if needed) and then %[1]s.`, pkg)
	case "windows":
		return fmt.Sprintf(`To install %[1]s on Windows, you need Chocolatey installed. Then install %[1]s (requires an elevated shell):

`+"```powershell"+`
choco install %[1]s
`+"```"+`

This command installs %[1]s using the Chocolatey package manager.`, pkg)
	default:
		return fmt.Sprintf("Unsupported operating system for installing %s. Please specify the installation method for your system or consult the package documentation.", pkg)
	}
}

// InstallCommands phrases package installation for the current platform.
func InstallCommands(pkg string) string {
	return installCommandsFor(runtime.GOOS, pkg)
}

func linuxInstallCommands(pkg string) string {
	family := linuxFamily()
	switch family {
	case "debian":
		return fmt.Sprintf(`To install %[1]s on Debian/Ubuntu-based systems:

`+"```bash"+`
sudo apt update
sudo apt install %[1]s
`+"```"+`

These commands update the package lists and install %[1]s.`, pkg)
	case "rhel":
		return fmt.Sprintf(`To install %[1]s on Red Hat-based systems:

`+"```bash"+`
sudo dnf install %[1]s
`+"```"+`

This command installs %[1]s using the DNF package manager.`, pkg)
	case "arch":
		return fmt.Sprintf(`To install %[1]s on Arch Linux:

`+"```bash"+`
sudo pacman -S %[1]s
`+"```"+`

This command installs %[1]s using the pacman package manager.`, pkg)
	default:
		return fmt.Sprintf(`To install %[1]s on other Linux distributions:

`+"```bash"+`
sudo yum install %[1]s
`+"```"+`

This command attempts to install %[1]s using the YUM package manager. If this fails, check your distribution's package manager.`, pkg)
	}
}

// linuxFamily sniffs /etc/os-release for the distribution family.
func linuxFamily() string {
	data, err := os.ReadFile(osReleasePath)
	if err != nil {
		return ""
	}
	info := strings.ToLower(string(data))
	switch {
	case strings.Contains(info, "debian"), strings.Contains(info, "ubuntu"):
		return "debian"
	case strings.Contains(info, "rhel"), strings.Contains(info, "fedora"), strings.Contains(info, "centos"):
		return "rhel"
	case strings.Contains(info, "arch"):
		return "arch"
	default:
		return ""
	}
}
