package address

var reasons = map[Defect]string{
	IPv4GroupCount:      "does not have exactly 4 octets",
	IPv4NonNumeric:      "contains a non-numeric octet",
	IPv4LeadingZero:     "has an octet with a leading zero",
	IPv4OctetOutOfRange: "has an octet greater than 255",

	IPv6MultipleCompression: "uses :: more than once",
	IPv6TooManyGroups:       "has more than 8 groups",
	IPv6EmptyGroup:          "has an empty group outside a :: compression",
	IPv6NonHex:              "contains a non-hex character",
	IPv6GroupTooLong:        "has a group with more than 4 hex digits",
	IPv6WrongLength:         "does not expand to exactly 8 groups",

	MACMixedSeparators: "mixes colons and dashes as separators",
	MACGroupCount:      "does not have exactly 6 groups",
	MACNonHex:          "contains a non-hex character",
	MACGroupLength:     "has a group that is not exactly 2 hex digits",
}

// Reason returns a human-readable description of d that reads after
// "This IPv4 ..." or "It ...".
func Reason(d Defect) string {
	if r, ok := reasons[d]; ok {
		return r
	}
	return "is not a valid address"
}
