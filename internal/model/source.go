package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chatd/internal/common/fsutil"
)

// SourceKind tells where weights come from.
type SourceKind int

const (
	SourceHub SourceKind = iota
	SourceLocal
)

// Source is a resolved model location.
type Source struct {
	Kind SourceKind
	// Ref is an absolute .gguf path (local) or "<repo>[:<quant>]" (hub).
	Ref       string
	SizeBytes uint64
}

// Resolve maps a model identifier to a local GGUF file or a hub reference.
// Existing paths win; a directory is scanned for *.gguf files, preferring a
// name containing the quantization tag. Anything else is a hub repository;
// a "-GGUF" suffix is added when missing.
func Resolve(id, quant string) (Source, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Source{}, fmt.Errorf("model id is empty")
	}
	p, err := fsutil.ExpandHome(id)
	if err != nil {
		return Source{}, err
	}
	if fi, err := os.Stat(p); err == nil {
		abs, err := filepath.Abs(p)
		if err != nil {
			return Source{}, fmt.Errorf("abs path: %w", err)
		}
		if fi.IsDir() {
			return scanDir(abs, quant)
		}
		return Source{Kind: SourceLocal, Ref: abs, SizeBytes: uint64(fi.Size())}, nil
	}
	repo := id
	if !strings.HasSuffix(strings.ToLower(repo), "-gguf") {
		repo += "-GGUF"
	}
	if q := strings.TrimSpace(quant); q != "" {
		repo += ":" + q
	}
	return Source{Kind: SourceHub, Ref: repo}, nil
}

func scanDir(dir, quant string) (Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Source{}, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return Source{}, fmt.Errorf("no .gguf files in %s", dir)
	}
	sort.Strings(names)
	pick := names[0]
	if q := strings.ToLower(strings.TrimSpace(quant)); q != "" {
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), q) {
				pick = n
				break
			}
		}
	}
	p := filepath.Join(dir, pick)
	fi, err := os.Stat(p)
	if err != nil {
		return Source{}, err
	}
	return Source{Kind: SourceLocal, Ref: p, SizeBytes: uint64(fi.Size())}, nil
}
