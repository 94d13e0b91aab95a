package cache

import (
	"fmt"
	"strings"
)

// JoinKey builds "prefix:p1:p2..." with each part formatted by %v.
func JoinKey(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}
