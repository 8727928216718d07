package parselet

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]*Language{}
)

// Register makes lang available to LookupLanguage under its extension. It
// panics if the extension is empty or already taken by another language.
func Register(lang *Language) {
	ext := normalizeExt(lang.Extension)
	if ext == "" {
		panic(fmt.Sprintf("Register: language %q has no extension", lang.Name))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if prev, ok := registry[ext]; ok && prev != lang {
		panic(fmt.Sprintf("Register: extension %q already used by language %q", ext, prev.Name))
	}
	registry[ext] = lang
}

// LookupLanguage returns the registered language for the file extension ext.
// A leading dot is ignored. ErrUnknownLanguage is returned if none is
// registered.
func LookupLanguage(ext string) (*Language, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	lang, ok := registry[normalizeExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, ext)
	}
	return lang, nil
}

// Languages returns every registered language ordered by extension.
func Languages() []*Language {
	registryMu.RLock()
	defer registryMu.RUnlock()

	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	langs := make([]*Language, len(exts))
	for i, ext := range exts {
		langs[i] = registry[ext]
	}
	return langs
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
