package session

import "strings"

// SanitizeAppKey turns a raw application name into a key that satisfies the
// storage layer's mapping-key restrictions: literal dots are replaced and a
// leading dollar sign is escaped.
func SanitizeAppKey(name string) string {
	key := strings.ReplaceAll(name, ".", "_")
	if strings.HasPrefix(key, "$") {
		key = "_$" + key[1:]
	}
	return key
}

// RestoreAppName reverses SanitizeAppKey for display. App names that contained
// real underscores come back with dots instead; inherited behavior.
func RestoreAppName(key string) string {
	if strings.HasPrefix(key, "_$") {
		key = "$" + key[2:]
	}
	return strings.ReplaceAll(key, "_", ".")
}

// RestoreAppUsage maps a sanitized usage map back to display names.
func RestoreAppUsage(usage map[string]int64) map[string]int64 {
	restored := make(map[string]int64, len(usage))
	for key, seconds := range usage {
		restored[RestoreAppName(key)] += seconds
	}
	return restored
}
