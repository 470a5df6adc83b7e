// Package address generates and validates IPv4, IPv6 and MAC drill tokens.
package address

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ipormac/internal/domain"
)

// Defect names a specific way a token deviates from its family's grammar.
type Defect string

const (
	IPv4GroupCount      Defect = "ipv4-group-count"
	IPv4NonNumeric      Defect = "ipv4-non-numeric"
	IPv4LeadingZero     Defect = "ipv4-leading-zero"
	IPv4OctetOutOfRange Defect = "ipv4-octet-out-of-range"

	IPv6MultipleCompression Defect = "ipv6-multiple-compression"
	IPv6TooManyGroups       Defect = "ipv6-too-many-groups"
	IPv6EmptyGroup          Defect = "ipv6-empty-group"
	IPv6NonHex              Defect = "ipv6-non-hex"
	IPv6GroupTooLong        Defect = "ipv6-group-too-long"
	IPv6WrongLength         Defect = "ipv6-wrong-length"

	MACMixedSeparators Defect = "mac-mixed-separators"
	MACGroupCount      Defect = "mac-group-count"
	MACNonHex          Defect = "mac-non-hex"
	MACGroupLength     Defect = "mac-group-length"

	// UnknownFamily is reported when asked to validate against "none" or an unknown type.
	UnknownFamily Defect = "unknown-family"
)

// DefectError reports why a token is not a valid member of Family.
type DefectError struct {
	Family domain.AddressType
	Defect Defect
}

func (e *DefectError) Error() string {
	return fmt.Sprintf("invalid %s address: %s", e.Family, e.Defect)
}

// Validate returns nil when s is a syntactically valid token of family,
// otherwise a *DefectError naming the most specific defect found.
func Validate(family domain.AddressType, s string) error {
	var d Defect
	switch family {
	case domain.IPv4:
		d = checkIPv4(s)
	case domain.IPv6:
		d = checkIPv6(s)
	case domain.MAC:
		d = checkMAC(s)
	default:
		d = UnknownFamily
	}
	if d == "" {
		return nil
	}
	return &DefectError{Family: family, Defect: d}
}

// IsValid reports whether s is a valid token of family.
func IsValid(family domain.AddressType, s string) bool {
	return Validate(family, s) == nil
}

// DefectOf extracts the defect from a Validate error, or "" for nil.
func DefectOf(err error) Defect {
	var de *DefectError
	if errors.As(err, &de) {
		return de.Defect
	}
	return ""
}

// Classify returns the family that accepts s, or None.
func Classify(s string) domain.AddressType {
	for _, f := range domain.Families() {
		if IsValid(f, s) {
			return f
		}
	}
	return domain.None
}

func checkIPv4(s string) Defect {
	groups := strings.Split(s, ".")
	if len(groups) != 4 {
		return IPv4GroupCount
	}
	for _, g := range groups {
		if g == "" || !allDigits(g) {
			return IPv4NonNumeric
		}
		if len(g) > 1 && g[0] == '0' {
			return IPv4LeadingZero
		}
		if len(g) > 3 {
			return IPv4OctetOutOfRange
		}
		if n, _ := strconv.Atoi(g); n > 255 {
			return IPv4OctetOutOfRange
		}
	}
	return ""
}

func checkIPv6(s string) Defect {
	if strings.Count(s, "::") > 1 || strings.Contains(s, ":::") {
		return IPv6MultipleCompression
	}

	var groups []string
	compressed := strings.Contains(s, "::")
	if compressed {
		head, tail, _ := strings.Cut(s, "::")
		groups = append(splitNonEmpty(head, ":"), splitNonEmpty(tail, ":")...)
	} else {
		groups = strings.Split(s, ":")
	}

	if len(groups) > 8 {
		return IPv6TooManyGroups
	}
	for _, g := range groups {
		if g == "" {
			return IPv6EmptyGroup
		}
		if !allHex(g) {
			return IPv6NonHex
		}
		if len(g) > 4 {
			return IPv6GroupTooLong
		}
	}
	// "::" must stand for at least one zero group.
	if compressed && len(groups) > 7 {
		return IPv6WrongLength
	}
	if !compressed && len(groups) != 8 {
		return IPv6WrongLength
	}
	return ""
}

func checkMAC(s string) Defect {
	hasColon := strings.Contains(s, ":")
	hasDash := strings.Contains(s, "-")
	if hasColon && hasDash {
		return MACMixedSeparators
	}
	sep := ":"
	if hasDash {
		sep = "-"
	}
	groups := strings.Split(s, sep)
	if len(groups) != 6 {
		return MACGroupCount
	}
	for _, g := range groups {
		if !allHex(g) {
			return MACNonHex
		}
		if len(g) != 2 {
			return MACGroupLength
		}
	}
	return ""
}

// splitNonEmpty splits s on sep, treating an empty s as zero parts.
func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
