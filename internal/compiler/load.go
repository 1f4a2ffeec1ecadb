package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/think/internal/ir"
)

// LoadValue builds the CUE value of a rule file, or of every .cue file of
// one package when path is a directory.
func LoadValue(ctx *cue.Context, path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, err
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances in %s", path)
	}
	if err := instances[0].Err; err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", err)
	}
	v := ctx.BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadFiles compiles each rule file (or directory) and merges the results in
// argument order. Facts and implications are concatenated; graph labels and
// prefixes must not be redefined with a different meaning.
func LoadFiles(paths ...string) (*ir.RuleSet, error) {
	ctx := cuecontext.New()
	merged := ir.NewRuleSet()
	for _, path := range paths {
		v, err := LoadValue(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		rs, err := CompileRuleSet(v)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", path, err)
		}
		if err := Merge(merged, rs); err != nil {
			return nil, fmt.Errorf("merge %s: %w", path, err)
		}
	}
	return merged, nil
}

// Merge adds src's graphs, implications, facts and prefixes to dst.
func Merge(dst, src *ir.RuleSet) error {
	for _, label := range sortedLabels(src.Graphs) {
		if _, exists := dst.Graphs[label]; exists {
			return &CompileError{Field: "graph." + label, Message: "graph label defined twice"}
		}
		dst.Graphs[label] = src.Graphs[label]
	}
	for name, ns := range src.Prefixes {
		if prev, ok := dst.Prefixes[name]; ok && prev != ns {
			return &CompileError{Field: "prefix." + name, Message: fmt.Sprintf("prefix bound to both %s and %s", prev, ns)}
		}
		dst.Prefixes[name] = ns
	}
	dst.Implies = append(dst.Implies, src.Implies...)
	dst.Facts = append(dst.Facts, src.Facts...)
	return nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}
