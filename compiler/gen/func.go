package gen

import (
	"go/token"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rules    = ruleset()
	acronyms = make(map[string]struct{})
)

// ruleset returns the inflection rules used for plural names. Common
// initialisms are registered as acronyms so they survive camel-casing.
func ruleset() *inflect.Ruleset {
	r := inflect.NewDefaultRuleset()
	for _, w := range []string{
		"ACL", "API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP",
		"HTTPS", "ID", "IP", "JSON", "MAC", "QPS", "RAM", "RPC", "SLA",
		"SMTP", "SQL", "SSH", "SSO", "TCP", "TLS", "TTL", "UDP", "UI", "UID",
		"URI", "URL", "UTF8", "UUID", "VM", "XML", "XSRF", "XSS",
	} {
		acronyms[w] = struct{}{}
		r.AddAcronym(w)
	}
	return r
}

// snake converts the given name to snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "UserInfo"), or next letter is also
		// lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		if r == '-' || r == ' ' {
			r = '_'
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func words(s string) []string {
	return strings.FieldsFunc(snake(s), func(r rune) bool { return r == '_' })
}

// pascalWord upper-cases known acronyms (and their plural) and title-cases
// every other word.
func pascalWord(w string) string {
	upper := strings.ToUpper(w)
	if _, ok := acronyms[upper]; ok {
		return upper
	}
	if n := len(w); n > 1 && w[n-1] == 's' {
		if _, ok := acronyms[upper[:n-1]]; ok {
			return upper[:n-1] + "s"
		}
	}
	return titleCase(w)
}

// titleCase builds a Caser per call. Casers are stateful and must not be
// shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}

// pascal converts the given name into a PascalCase Go identifier.
//
//	user_info => UserInfo
//	user_id   => UserID
//	api_url   => APIURL
func pascal(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(pascalWord(w))
	}
	return b.String()
}

// camel converts the given name into a camelCase Go identifier.
//
//	user_info => userInfo
//	http_code => httpCode
func camel(s string) string {
	ws := words(s)
	if len(ws) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(ws[0]))
	for _, w := range ws[1:] {
		b.WriteString(pascalWord(w))
	}
	return b.String()
}

// receiver returns the receiver name of the given type.
//
//	Product   => p
//	OrderItem => oi
func receiver(s string) string {
	s = strings.TrimLeft(s, "[]*0123456789")
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteByte(w[0])
	}
	r := b.String()
	if r == "" {
		return "r"
	}
	if token.IsKeyword(r) {
		return r[:1]
	}
	return r
}

// plural returns the plural form of the given name. Names the rules
// consider uncountable get a "Slice" suffix so the result never collides
// with the singular form.
func plural(name string) string {
	p := rules.Pluralize(name)
	if p == name {
		p += "Slice"
	}
	return p
}

// Pascal is the exported form of pascal, for use by generator backends.
func Pascal(s string) string { return pascal(s) }

// Camel is the exported form of camel, for use by generator backends.
func Camel(s string) string { return camel(s) }

// Snake is the exported form of snake, for use by generator backends.
func Snake(s string) string { return snake(s) }

// Plural is the exported form of plural, for use by generator backends.
func Plural(s string) string { return plural(s) }

// Receiver is the exported form of receiver, for use by generator backends.
func Receiver(s string) string { return receiver(s) }

// Title upper-cases the first letter of s and leaves the rest untouched.
func Title(s string) string { return titleCase(s) }
