package singleinstance

import (
	"os"
	"strconv"
)

const (
	defaultPortStart = 49560
	defaultPortEnd   = 49580

	PortStartEnvVar = "FINALSHOT_PORT_START"
	PortEndEnvVar   = "FINALSHOT_PORT_END"

	minPort = 1024
	maxPort = 65535
)

// portRange returns the inclusive loopback port range the resident and its
// clients agree on. Unset or malformed variables fall back to the defaults.
func portRange() (start, end int) {
	start = envPort(PortStartEnvVar, defaultPortStart)
	end = envPort(PortEndEnvVar, defaultPortEnd)
	if end < start {
		start, end = end, start
	}
	start = min(max(start, minPort), maxPort)
	end = min(max(end, start), maxPort)
	return start, end
}

func envPort(name string, def int) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return def
	}
	return n
}

// PortRange exposes the effective port range for logging.
func PortRange() (int, int) { return portRange() }
