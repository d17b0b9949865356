package sql

import "strings"

// isSafeIdentifier 判断标识符是否为安全的数据库标识符。
//
// 允许 foo、bar_1 以及 schema.table 形式；每段首字符为字母或下划线，
// 其余为字母、数字或下划线。
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			ch := part[i]
			letter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
			if i == 0 && !letter {
				return false
			}
			if i > 0 && !letter && !(ch >= '0' && ch <= '9') {
				return false
			}
		}
	}
	return true
}

func mustBeIdentifiers(builder string, names ...string) {
	for _, name := range names {
		if !isSafeIdentifier(name) {
			panic(builder + ": unsafe identifier " + name)
		}
	}
}
