package util

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReadSymbolsFile reads symbols from a file, one per line. Blank lines are
// skipped and symbols are upper-cased.
func ReadSymbolsFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		s := strings.ToUpper(strings.TrimSpace(line))
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// MergeSymbols combines a symbols file and an explicit list into one sorted,
// deduplicated set. At least one source must yield a symbol.
func MergeSymbols(filePath string, list []string) ([]string, error) {
	set := make(map[string]struct{})

	if filePath != "" {
		fromFile, err := ReadSymbolsFile(filePath)
		if err != nil {
			return nil, err
		}
		for _, s := range fromFile {
			set[s] = struct{}{}
		}
	}

	for _, s := range list {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
