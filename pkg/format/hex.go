package format

import (
	"regexp"
	"strconv"
	"strings"
)

// addressValueRe matches `"<key>": <number>` for any of keys. Group 1 is
// everything up to the number, group 2 the number.
func addressValueRe(keys []string) *regexp.Regexp {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}

	return regexp.MustCompile(`("(?:` + strings.Join(quoted, "|") + `)"\s*:\s*)(-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)`)
}

// hexify rewrites non-negative integer values matched by re as quoted
// lowercase hex. Other numbers are left alone.
func hexify(re *regexp.Regexp, line string) string {
	return re.ReplaceAllStringFunc(line, func(m string) string {
		sub := re.FindStringSubmatch(m)

		n, err := strconv.ParseUint(sub[2], 10, 64)
		if err != nil {
			return m
		}

		return sub[1] + `"0x` + strconv.FormatUint(n, 16) + `"`
	})
}
