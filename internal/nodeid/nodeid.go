// Package nodeid derives the string identities of graph nodes.
//
// Ids are plain concatenations of a kind prefix and "_" separated
// components. Uniqueness within a kind is the caller's responsibility.
package nodeid

import "strings"

// Kind prefixes.
const (
	CommandPrefix      = "command"
	SubscriptionPrefix = "subscription"
	EndpointPrefix     = "endpoint"
)

const sep = "_"

// CommandID returns the id of command name in service version.
func CommandID(service, version, name string) string {
	return join(CommandPrefix, service, version, name)
}

// SubscriptionID returns the id of subscription name in service version.
func SubscriptionID(service, version, name string) string {
	return join(SubscriptionPrefix, service, version, name)
}

// EndpointID returns the id of the REST endpoint method path in version.
func EndpointID(version, method, path string) string {
	return join(EndpointPrefix, version, method, path)
}

// Prefix returns the kind prefix of id, or "" when id has none of the known prefixes.
func Prefix(id string) string {
	for _, p := range []string{CommandPrefix, SubscriptionPrefix, EndpointPrefix} {
		if strings.HasPrefix(id, p+sep) {
			return p
		}
	}
	return ""
}

func join(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteString(sep)
		b.WriteString(p)
	}
	return b.String()
}
