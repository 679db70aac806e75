package sandbox

import (
	"fmt"
	"strings"
)

// blockedPatterns is the built-in command denylist. It is a pattern set,
// not an allowlist: commands that match none of the patterns pass, so
// this check is defense-in-depth rather than a sandboxing guarantee.
var blockedPatterns = []string{
	// destructive filesystem wipes
	"rm -rf /",
	"rm -r /",
	"rm -rf ~",
	"rm -rf *",
	"mkfs",
	"dd if=",
	"cp /dev/zero",
	">/dev/sd",
	">/dev/vd",
	">/dev/hd",
	">/dev/nvme",
	">/dev/xvd",
	">/dev/mmcblk",
	"chmod 000 /",
	"chown / ",
	"mv / ",
	// fork bombs
	":(){",
	":(){ :|:& };:",
	// privilege escalation and account mutation
	"sudo ",
	"su ",
	"visudo",
	"passwd",
	"userdel",
	"groupdel",
	"adduser",
	"addgroup",
	"deluser",
	"delgroup",
	// process and host teardown
	"shutdown",
	"reboot",
	"poweroff",
	"halt",
	"init 0",
	"init 6",
	"kill 1",
	"kill -9 1",
	"killall",
	"pkill",
	"systemctl",
	"crontab -r",
	// container teardown
	"docker stop",
	"docker kill",
	"docker rm",
	"docker rmi",
	"docker system prune",
	"docker-compose down",
	"docker-compose rm",
	// network exfiltration / reverse shell primitives
	"nc -e",
	"ncat -e",
	"bash -i >&",
	"/dev/tcp/",
}

// screenCommand checks one shell command string against the denylist.
// The command is lowercased and its whitespace collapsed before
// matching, so spacing tricks do not slip a blocked pattern through.
func (s *Sandbox) screenCommand(command string) error {
	canonical := strings.ToLower(strings.Join(strings.Fields(command), " "))
	for _, pattern := range s.blocked {
		if strings.Contains(canonical, pattern) {
			return &Denial{
				Reason:  ReasonBlockedCommand,
				Message: fmt.Sprintf("command matches blocked pattern %q", pattern),
			}
		}
	}
	return nil
}
