package classify

import "regexp"

// baselineBlocked returns the non-configurable catastrophic-operation
// patterns. Matching any of these means the command is never executed,
// regardless of configuration.
func baselineBlocked() []Rule {
	return []Rule{
		{ID: "blocked.rm-root", re: regexp.MustCompile(`(?i)\brm\s+-(?:rf|fr)\s+/`)},
		{ID: "blocked.format-drive", re: regexp.MustCompile(`(?i)\bformat\s+c:`)},
		{ID: "blocked.del-system", re: regexp.MustCompile(`(?i)\bdel\s+/s\s+/q\s+c:\\`)},
		{ID: "blocked.shutdown-now", re: regexp.MustCompile(`(?i)\bshutdown\s+-h\s+now\b`)},
		{ID: "blocked.init-halt", re: regexp.MustCompile(`(?i)\binit\s+0\b`)},
		{ID: "blocked.fork-bomb", re: regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;\s*:`)},
		{ID: "blocked.disk-wipe", re: regexp.MustCompile(`(?i)\bdd\s+if=/dev/(?:zero|random|urandom)`)},
		{ID: "blocked.mkfs", re: regexp.MustCompile(`(?i)\bmkfs\b`)},
		{ID: "blocked.fdisk-delete", re: regexp.MustCompile(`(?i)\bfdisk\b.*--delete`)},
	}
}

// baselinePrivileged returns patterns for operations that escalate
// privilege or mutate system-wide state. These require confirmation
// unless the skip-confirmation policy is in effect.
func baselinePrivileged() []Rule {
	return []Rule{
		{ID: "priv.escalation", re: regexp.MustCompile(`(?i)(?:^|\s)(?:sudo|su|doas|runas)\b`)},
		{ID: "priv.pkg-manager", re: regexp.MustCompile(`(?i)\b(?:apt|apt-get|yum|dnf|zypper)\s+(?:install|remove|purge|upgrade|update|dist-upgrade|autoremove)\b`)},
		{ID: "priv.pacman", re: regexp.MustCompile(`(?i)\bpacman\s+-[A-Za-z]*[SRU]`)},
		{ID: "priv.pkg-desktop", re: regexp.MustCompile(`(?i)\b(?:brew|choco|snap)\s+(?:install|uninstall|remove|upgrade)\b`)},
		{ID: "priv.service-control", re: regexp.MustCompile(`(?i)\b(?:systemctl|service|chkconfig|launchctl)\s+\S+`)},
		{ID: "priv.mount", re: regexp.MustCompile(`(?i)(?:^|\s)(?:mount|umount|fsck)\b`)},
		{ID: "priv.firewall", re: regexp.MustCompile(`(?i)\b(?:iptables|ufw|firewall-cmd)\b`)},
	}
}
