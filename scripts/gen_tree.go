//go:build ignore

// Generates a synthetic Python project for profiling the scanner and
// graph builder against trees far larger than the test fixtures.
// Run with: go run scripts/gen_tree.go -out /tmp/bigtree -packages 50 -modules 200
//
// Each package gets an __init__.py and -modules module files; module i
// imports module i-1 within its package, and every package's module 0
// imports the previous package's last module, so the closure spans the
// whole tree. Point the CLI at the result:
//
//	go run ./cmd/impactgate graph --root /tmp/bigtree
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func main() {
	out := flag.String("out", "", "Output directory (required)")
	packages := flag.Int("packages", 50, "Number of packages")
	modules := flag.Int("modules", 200, "Modules per package")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	total := 0
	for p := 0; p < *packages; p++ {
		pkg := fmt.Sprintf("pkg_%03d", p)
		dir := filepath.Join(*out, pkg)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("mkdir %s: %v", dir, err)
		}
		write(filepath.Join(dir, "__init__.py"), "")
		total++

		for m := 0; m < *modules; m++ {
			var body string
			switch {
			case m > 0:
				body = fmt.Sprintf("import %s.mod_%03d\n", pkg, m-1)
			case p > 0:
				body = fmt.Sprintf("import pkg_%03d.mod_%03d\n", p-1, *modules-1)
			default:
				body = "import os\n"
			}
			write(filepath.Join(dir, fmt.Sprintf("mod_%03d.py", m)), body)
			total++
		}
	}

	config := "targets:\n  - name: all\n    roots:\n      - pkg_000\n"
	write(filepath.Join(*out, ".impactgate.yaml"), config)

	fmt.Printf("wrote %d files under %s\n", total, *out)
}

func write(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
}
