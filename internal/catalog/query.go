package catalog

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

// FindService returns the service with the given name and version.
func FindService(services []Service, name, version string) (Service, bool) {
	for _, s := range services {
		if s.Name == name && s.Version == version {
			return s, true
		}
	}
	return Service{}, false
}

// GroupByName groups services by name. Each group lists versions newest
// first; groups are ordered by service name.
func GroupByName(services []Service) [][]Service {
	byName := make(map[string][]Service)
	var names []string
	for _, s := range services {
		if _, ok := byName[s.Name]; !ok {
			names = append(names, s.Name)
		}
		byName[s.Name] = append(byName[s.Name], s)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return naturalLess(strings.ToLower(names[i]), strings.ToLower(names[j]))
	})

	groups := make([][]Service, 0, len(names))
	for _, name := range names {
		group := byName[name]
		sort.SliceStable(group, func(i, j int) bool {
			return CompareVersions(group[i].Version, group[j].Version) > 0
		})
		groups = append(groups, group)
	}
	return groups
}

// CompareVersions orders two service versions. Semantic versions are compared
// as such ("1" and "v2" are accepted); anything else falls back to natural
// string order.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	switch {
	case a == b:
		return 0
	case naturalLess(a, b):
		return -1
	default:
		return 1
	}
}

// naturalLess compares strings treating digit runs as numbers, so "v2" < "v10".
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			na, restA := leadingNumber(a)
			nb, restB := leadingNumber(b)
			if na != nb {
				return na < nb
			}
			a, b = restA, restB
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingNumber(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

// EventNames lists every event name published by a command or subscription,
// in first-seen order.
func EventNames(services []Service) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, s := range services {
		for _, c := range s.Commands {
			add(c.EventName)
		}
		for _, sub := range s.Subscriptions {
			add(sub.EventName)
		}
	}
	return names
}

// RestEndpointCount counts the commands exposed as REST endpoints.
func RestEndpointCount(services []Service) int {
	count := 0
	for _, s := range services {
		for _, c := range s.Commands {
			if c.RestAPI != nil {
				count++
			}
		}
	}
	return count
}

// InvokingCommands returns the addresses of all commands that invoke addr.
func InvokingCommands(services []Service, addr Address) []Address {
	var res []Address
	for _, s := range services {
		for _, c := range s.Commands {
			if invokes(c.Invokes, addr) {
				res = append(res, Address{ServiceName: s.Name, ServiceVersion: s.Version, ServiceTarget: c.Name})
			}
		}
	}
	return res
}

// InvokingSubscriptions returns the addresses of all subscriptions that invoke addr.
func InvokingSubscriptions(services []Service, addr Address) []Address {
	var res []Address
	for _, s := range services {
		for _, sub := range s.Subscriptions {
			if invokes(sub.Invokes, addr) {
				res = append(res, Address{ServiceName: s.Name, ServiceVersion: s.Version, ServiceTarget: sub.Name})
			}
		}
	}
	return res
}

func invokes(list []Address, addr Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}
