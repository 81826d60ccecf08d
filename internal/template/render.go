// Package template renders stored welcome-DM bodies. Placeholders use a
// double-brace mustache-style syntax ({{member_name}}); unknown placeholders
// render as the empty string and rendering never fails, so a half-configured
// template degrades gracefully instead of blocking a send.
package template

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// placeholderRE matches {{ name }} with optional inner whitespace.
var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render substitutes named placeholders in tpl with values from vars.
// Placeholders with no matching key are replaced by the empty string.
func Render(tpl string, vars map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholderRE.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// Vars builds the standard substitution set for a welcome DM. Bare usernames
// (no spaces, all lowercase) are title-cased for member_name so "ana" greets
// as "Ana"; anything that already looks like a display name is left alone.
func Vars(memberName, communityName, onboardingLink string) map[string]string {
	return map[string]string{
		"member_name":     DisplayName(memberName),
		"community_name":  communityName,
		"onboarding_link": onboardingLink,
	}
}

// DisplayName normalizes a member identifier into something greetable.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	if !strings.ContainsAny(name, " .@") && name == strings.ToLower(name) {
		return cases.Title(language.English).String(name)
	}
	return name
}
