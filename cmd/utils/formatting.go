package utils

import "strings"

// IconForStatus maps a backend health status to a terminal icon.
func IconForStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "healthy", "ok":
		return "●"
	case "degraded":
		return "◐"
	case "unhealthy", "unreachable":
		return "○"
	default:
		return "?"
	}
}
