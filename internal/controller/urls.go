package controller

import (
	"errors"
	"strings"
)

// NormaliseURL trims u and adds https:// when it has no scheme.
func NormaliseURL(u string) (string, error) {
	trimmed := strings.TrimSpace(u)
	if trimmed == "" {
		return "", errors.New("empty url")
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed, nil
	}
	return "https://" + strings.TrimLeft(trimmed, "/"), nil
}

// NormaliseURLs merges all lists into one, normalising every url. Empty
// entries are dropped and duplicates keep their first position.
func NormaliseURLs(lists ...[]string) []string {
	seen := map[string]bool{}
	var urls []string
	for _, list := range lists {
		for _, raw := range list {
			u, err := NormaliseURL(raw)
			if err != nil || seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}
