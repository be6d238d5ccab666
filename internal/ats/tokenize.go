package ats

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9.#+/][A-Za-z0-9+#./\-]*`)

type token struct {
	surface string
	norm    string
}

// tokenize 切词并小写化，保留 c++ / node.js / ci/cd 这类技术词
func tokenize(text string) []token {
	raw := tokenPattern.FindAllString(text, -1)
	out := make([]token, 0, len(raw))
	for _, r := range raw {
		surface := strings.TrimRight(r, ".-/")
		surface = strings.TrimLeft(surface, "/-")
		if surface == "" {
			continue
		}
		norm := strings.ToLower(surface)
		if norm != ".net" {
			trimmed := strings.TrimLeft(norm, ".")
			surface = surface[len(surface)-len(trimmed):]
			norm = trimmed
		}
		if norm == "" || isNumeric(norm) {
			continue
		}
		out = append(out, token{surface: surface, norm: norm})
	}
	return out
}

// keywords 去掉停用词后的关键词
func keywords(text string, dropFiller bool) []token {
	var out []token
	for _, tok := range tokenize(text) {
		if _, stop := stopWords[tok.norm]; stop {
			continue
		}
		if dropFiller {
			if _, filler := jdFillerWords[tok.norm]; filler {
				continue
			}
		}
		if len(tok.norm) < 2 && !IsSkill(tok.norm) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '+' && r != '/' && r != '-' {
			return false
		}
	}
	return true
}
