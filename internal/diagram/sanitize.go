package diagram

import "strings"

var labelSanitizer = strings.NewReplacer(`"`, "", "(", "", ")", "")

// SanitizeLabel strips the characters that break quoted Mermaid labels:
// double quotes and parentheses. Nothing else is changed, so applying it
// twice yields the same result as applying it once.
func SanitizeLabel(s string) string {
	return labelSanitizer.Replace(s)
}
