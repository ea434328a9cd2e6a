// Package text implements normalization, tokenization, and chunking of
// free-form document text ahead of indexing.
package text

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonicalizer unifies script-specific character variants. Pure text in,
// text out.
type Canonicalizer interface {
	Canonicalize(s string) string
}

// Normalizer canonicalizes free text: collapses whitespace runs to single
// spaces, trims, and applies an optional script canonicalizer. Without a
// canonicalizer it degrades to whitespace collapsing only.
type Normalizer struct {
	canon Canonicalizer
}

// NewNormalizer creates a Normalizer. canon may be nil.
func NewNormalizer(canon Canonicalizer) *Normalizer {
	return &Normalizer{canon: canon}
}

// Normalize returns the canonical form of s. Pure function, no failure mode.
func (n *Normalizer) Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if n.canon != nil {
		s = n.canon.Canonicalize(s)
	}
	return strings.TrimSpace(s)
}

// PersianCanonicalizer unifies Arabic-script variants the way Persian text
// processing expects: NFC composition, Arabic yeh/kaf to their Farsi
// counterparts, teh marbuta to heh, Arabic-Indic digits to Extended
// Arabic-Indic, and tashkil/tatweel stripped.
type PersianCanonicalizer struct {
	chain transform.Transformer
}

// NewPersianCanonicalizer builds the transform chain once.
func NewPersianCanonicalizer() *PersianCanonicalizer {
	return &PersianCanonicalizer{
		chain: transform.Chain(
			norm.NFC,
			runes.Remove(runes.Predicate(isArabicDiacritic)),
			runes.Map(unifyPersianRune),
			norm.NFC,
		),
	}
}

// Canonicalize implements Canonicalizer. On a transform error the input is
// returned unchanged; normalization has no failure mode.
func (c *PersianCanonicalizer) Canonicalize(s string) string {
	out, _, err := transform.String(c.chain, s)
	if err != nil {
		return s
	}
	return out
}

// isArabicDiacritic reports tashkil (U+064B..U+065F), the superscript alef,
// and tatweel. These marks carry no retrieval signal.
func isArabicDiacritic(r rune) bool {
	switch {
	case r >= 0x064B && r <= 0x065F:
		return true
	case r == 0x0670: // superscript alef
		return true
	case r == 0x0640: // tatweel
		return true
	}
	return false
}

func unifyPersianRune(r rune) rune {
	switch r {
	case 'ي', 'ى': // Arabic yeh, alef maksura
		return 'ی'
	case 'ك': // Arabic kaf
		return 'ک'
	case 'ة': // teh marbuta
		return 'ه'
	case 'أ', 'إ', 'ٱ':
		return 'ا'
	}
	// Arabic-Indic digits to Extended Arabic-Indic (Persian) digits.
	if r >= '٠' && r <= '٩' {
		return '۰' + (r - '٠')
	}
	return r
}
