package address

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"ipormac/internal/domain"
)

// maxRerolls bounds how often a token that collides with another family is regenerated.
const maxRerolls = 32

const (
	hexUpper     = "0123456789ABCDEF"
	hexLower     = "0123456789abcdef"
	letters      = "abcdefghijklmnopqrstuvwxyz"
	nonHexLower  = "ghijklmnopqrstuvwxyz"
	nonHexUpper  = "GHIJKLMNOPQRSTUVWXYZ"
	macSeparator = ":-"
)

// Rand is the random source the generator draws from. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

var injectable = map[domain.AddressType][]Defect{
	domain.IPv4: {IPv4OctetOutOfRange, IPv4GroupCount, IPv4NonNumeric, IPv4LeadingZero},
	domain.IPv6: {IPv6TooManyGroups, IPv6MultipleCompression, IPv6GroupTooLong, IPv6NonHex, IPv6WrongLength},
	domain.MAC:  {MACGroupCount, MACGroupLength, MACNonHex, MACMixedSeparators},
}

// InjectableDefects lists the defects the generator may apply to a family, in selection order.
func InjectableDefects(family domain.AddressType) []Defect {
	return append([]Defect(nil), injectable[family]...)
}

// Generator builds random drill tokens. It is safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	rnd      Rand
	weights  []int
	total    int
	onReroll func(domain.AddressType)
}

// Option configures a Generator.
type Option func(*Generator)

// WithWeights sets the relative frequency of each address type. Types not
// present get weight 0; an all-zero map keeps the uniform default.
func WithWeights(weights map[domain.AddressType]int) Option {
	return func(g *Generator) {
		w := make([]int, len(domain.AddressTypes()))
		total := 0
		for i, t := range domain.AddressTypes() {
			if weights[t] > 0 {
				w[i] = weights[t]
				total += w[i]
			}
		}
		if total > 0 {
			g.weights, g.total = w, total
		}
	}
}

// WithRerollHook is called with the requested type every time a token is regenerated.
func WithRerollHook(fn func(domain.AddressType)) Option {
	return func(g *Generator) { g.onReroll = fn }
}

// NewGenerator returns a generator drawing from rnd with uniform family weights.
func NewGenerator(rnd Rand, opts ...Option) *Generator {
	g := &Generator{
		rnd:     rnd,
		weights: []int{1, 1, 1, 1},
		total:   4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSeededGenerator is a convenience for reproducible question sequences.
func NewSeededGenerator(seed int64, opts ...Option) *Generator {
	return NewGenerator(rand.New(rand.NewSource(seed)), opts...)
}

// Generate returns one token and its label.
func (g *Generator) Generate() domain.GeneratedAddress {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.pickType()
	if t == domain.None {
		m := g.nearMiss()
		return domain.GeneratedAddress{
			Address:       m.token,
			Type:          domain.None,
			InvalidType:   m.family,
			InvalidReason: m.reason,
			Defect:        string(m.defect),
		}
	}
	return domain.GeneratedAddress{Address: g.valid(t), Type: t}
}

func (g *Generator) pickType() domain.AddressType {
	r := g.rnd.Intn(g.total)
	types := domain.AddressTypes()
	for i, w := range g.weights {
		if r < w {
			return types[i]
		}
		r -= w
	}
	return types[len(types)-1]
}

func (g *Generator) valid(family domain.AddressType) string {
	var tok string
	for i := 0; i < maxRerolls; i++ {
		tok = g.render(family)
		if Classify(tok) == family {
			return tok
		}
		g.reroll(family)
	}
	return tok
}

func (g *Generator) render(family domain.AddressType) string {
	switch family {
	case domain.IPv4:
		return strings.Join(g.ipv4Parts(), ".")
	case domain.IPv6:
		return g.renderIPv6()
	default:
		sep := g.macSep()
		return strings.Join(g.macParts(), sep)
	}
}

func (g *Generator) reroll(t domain.AddressType) {
	if g.onReroll != nil {
		g.onReroll(t)
	}
}

// mutation is a near-miss token together with the valid token it was derived from.
type mutation struct {
	family   domain.AddressType
	defect   Defect
	reason   string
	token    string
	original string
}

func (g *Generator) nearMiss() mutation {
	for i := 0; i < maxRerolls; i++ {
		families := domain.Families()
		family := families[g.rnd.Intn(len(families))]
		defects := injectable[family]
		m := g.inject(family, defects[g.rnd.Intn(len(defects))])
		if Classify(m.token) == domain.None {
			return m
		}
		g.reroll(domain.None)
	}
	// A dotted token with an octet above 255 is never valid in any family.
	return g.injectIPv4(IPv4OctetOutOfRange)
}

func (g *Generator) inject(family domain.AddressType, d Defect) mutation {
	switch family {
	case domain.IPv4:
		return g.injectIPv4(d)
	case domain.IPv6:
		return g.injectIPv6(d)
	default:
		return g.injectMAC(d)
	}
}

func (g *Generator) injectIPv4(d Defect) mutation {
	parts := g.ipv4Parts()
	m := mutation{family: domain.IPv4, defect: d, reason: Reason(d), original: strings.Join(parts, ".")}
	i := g.rnd.Intn(len(parts))

	switch d {
	case IPv4OctetOutOfRange:
		parts[i] = strconv.Itoa(256 + g.rnd.Intn(744))
	case IPv4GroupCount:
		if g.rnd.Intn(2) == 0 {
			parts = removeAt(parts, i)
		} else {
			parts = insertAt(parts, i, strconv.Itoa(g.rnd.Intn(256)))
		}
		m.reason = fmt.Sprintf("has %d octets instead of 4", len(parts))
	case IPv4NonNumeric:
		parts[i] = replaceChar(parts[i], g.rnd.Intn(len(parts[i])), letters[g.rnd.Intn(len(letters))])
	case IPv4LeadingZero:
		parts[i] = "0" + parts[i]
	}
	m.token = strings.Join(parts, ".")
	return m
}

func (g *Generator) injectIPv6(d Defect) mutation {
	parts := g.ipv6Parts()
	m := mutation{family: domain.IPv6, defect: d, reason: Reason(d), original: strings.Join(parts, ":")}

	switch d {
	case IPv6TooManyGroups:
		extra := fmt.Sprintf("%04x", g.rnd.Intn(0x10000))
		parts = insertAt(parts, g.rnd.Intn(len(parts)+1), extra)
	case IPv6MultipleCompression:
		first := g.rnd.Intn(6)
		second := first + 2 + g.rnd.Intn(6-first)
		parts[first], parts[second] = "0000", "0000"
		m.original = strings.Join(parts, ":")
		m.token = strings.Join(parts[:first], ":") + "::" +
			strings.Join(parts[first+1:second], ":") + "::" +
			strings.Join(parts[second+1:], ":")
		return m
	case IPv6GroupTooLong:
		i := g.rnd.Intn(len(parts))
		parts[i] += string(hexLower[g.rnd.Intn(len(hexLower))])
	case IPv6NonHex:
		i := g.rnd.Intn(len(parts))
		parts[i] = replaceChar(parts[i], g.rnd.Intn(len(parts[i])), nonHexLower[g.rnd.Intn(len(nonHexLower))])
	case IPv6WrongLength:
		drop := 1 + g.rnd.Intn(2)
		for k := 0; k < drop; k++ {
			parts = removeAt(parts, g.rnd.Intn(len(parts)))
		}
		m.reason = fmt.Sprintf("has only %d groups and no :: compression", len(parts))
	}
	m.token = strings.Join(parts, ":")
	return m
}

func (g *Generator) injectMAC(d Defect) mutation {
	sep := g.macSep()
	parts := g.macParts()
	m := mutation{family: domain.MAC, defect: d, reason: Reason(d), original: strings.Join(parts, sep)}

	switch d {
	case MACGroupCount:
		i := g.rnd.Intn(len(parts))
		if g.rnd.Intn(2) == 0 {
			parts = removeAt(parts, i)
		} else {
			parts = insertAt(parts, i, g.hexPair())
		}
		m.reason = fmt.Sprintf("has %d groups instead of 6", len(parts))
	case MACGroupLength:
		i := g.rnd.Intn(len(parts))
		if g.rnd.Intn(2) == 0 {
			parts[i] = parts[i][:1]
		} else {
			parts[i] += string(hexUpper[g.rnd.Intn(len(hexUpper))])
		}
	case MACNonHex:
		i := g.rnd.Intn(len(parts))
		parts[i] = replaceChar(parts[i], g.rnd.Intn(2), nonHexUpper[g.rnd.Intn(len(nonHexUpper))])
	case MACMixedSeparators:
		other := ":"
		if sep == ":" {
			other = "-"
		}
		odd := g.rnd.Intn(len(parts) - 1)
		var b strings.Builder
		for i, p := range parts {
			if i > 0 {
				if i-1 == odd {
					b.WriteString(other)
				} else {
					b.WriteString(sep)
				}
			}
			b.WriteString(p)
		}
		m.token = b.String()
		return m
	}
	m.token = strings.Join(parts, sep)
	return m
}

func (g *Generator) ipv4Parts() []string {
	parts := make([]string, 4)
	for i := range parts {
		parts[i] = strconv.Itoa(g.rnd.Intn(256))
	}
	return parts
}

// ipv6Parts returns eight zero-padded lowercase groups.
func (g *Generator) ipv6Parts() []string {
	parts := make([]string, 8)
	for i := range parts {
		parts[i] = fmt.Sprintf("%04x", g.rnd.Intn(0x10000))
	}
	return parts
}

// renderIPv6 returns either the fully expanded form or a form with one zero run compressed to "::".
func (g *Generator) renderIPv6() string {
	if g.rnd.Intn(2) == 0 {
		return strings.Join(g.ipv6Parts(), ":")
	}
	groups := make([]int, 8)
	for i := range groups {
		groups[i] = g.rnd.Intn(0x10000)
	}
	start := g.rnd.Intn(8)
	length := 1 + g.rnd.Intn(4)
	if start+length > 8 {
		length = 8 - start
	}
	return compactGroups(groups[:start]) + "::" + compactGroups(groups[start+length:])
}

func compactGroups(groups []int) string {
	parts := make([]string, len(groups))
	for i, v := range groups {
		parts[i] = strconv.FormatInt(int64(v), 16)
	}
	return strings.Join(parts, ":")
}

func (g *Generator) macSep() string {
	return string(macSeparator[g.rnd.Intn(len(macSeparator))])
}

func (g *Generator) macParts() []string {
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = g.hexPair()
	}
	return parts
}

func (g *Generator) hexPair() string {
	return fmt.Sprintf("%02X", g.rnd.Intn(256))
}

func removeAt(parts []string, i int) []string {
	out := make([]string, 0, len(parts)-1)
	out = append(out, parts[:i]...)
	return append(out, parts[i+1:]...)
}

func insertAt(parts []string, i int, v string) []string {
	out := make([]string, 0, len(parts)+1)
	out = append(out, parts[:i]...)
	out = append(out, v)
	return append(out, parts[i:]...)
}

func replaceChar(s string, i int, c byte) string {
	b := []byte(s)
	b[i] = c
	return string(b)
}
