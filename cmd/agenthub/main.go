// Command agenthub is the component installer CLI: it lists, searches,
// validates and installs agent and tool components from a catalog of
// manifests.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/effective-security/agenthub/catalog"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

func main() {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	xlog.SetGlobalLogLevel(xlog.WARNING)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "list":
		os.Exit(cmdList(os.Args[2:]))
	case "info":
		os.Exit(cmdInfo(os.Args[2:]))
	case "search":
		os.Exit(cmdSearch(os.Args[2:]))
	case "validate":
		os.Exit(cmdValidate(os.Args[2:]))
	case "install":
		os.Exit(cmdInstall(os.Args[2:]))
	case "env":
		os.Exit(cmdEnv(os.Args[2:]))
	case "help", "--help", "-h":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: agenthub <command> [options]")
	fmt.Fprintln(os.Stderr, "commands: list, info, search, validate, install, env")
	fmt.Fprintln(os.Stderr, "options: --dir <catalog dir>, --json, --verbose")
}

// commonFlags holds the flags shared by every subcommand.
type commonFlags struct {
	dir     string
	jsonOut bool
	rest    []string
}

func parseFlags(args []string) commonFlags {
	f := commonFlags{
		dir: values.StringsCoalesce(os.Getenv("AGENTHUB_CATALOG"), "manifests"),
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--dir":
			if i+1 < len(args) {
				i++
				f.dir = args[i]
			}
		case "--json":
			f.jsonOut = true
		case "--verbose":
			xlog.SetGlobalLogLevel(xlog.DEBUG)
		default:
			f.rest = append(f.rest, args[i])
		}
	}
	return f
}

func loadCatalog(dir string) (*catalog.Catalog, int) {
	cat, err := catalog.Load(os.DirFS(dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load catalog from %s: %s\n", dir, err.Error())
		return nil, 1
	}
	return cat, 0
}

func cmdList(args []string) int {
	f := parseFlags(args)
	cat, code := loadCatalog(f.dir)
	if code != 0 {
		return code
	}

	list := cat.List()
	if f.jsonOut {
		fmt.Println(llmutils.ToJSONIndent(list))
		return 0
	}
	for _, m := range list {
		fmt.Printf("%-24s %-8s %-10s %s\n", m.Name, m.Kind, m.Version, m.Description)
	}
	return 0
}

func cmdInfo(args []string) int {
	f := parseFlags(args)
	if len(f.rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: agenthub info <name>")
		return 1
	}
	cat, code := loadCatalog(f.dir)
	if code != 0 {
		return code
	}

	m, err := cat.Get(f.rest[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	if f.jsonOut {
		fmt.Println(llmutils.ToJSONIndent(m))
		return 0
	}

	fmt.Printf("Name:        %s\n", m.Name)
	fmt.Printf("Version:     %s\n", m.Version)
	fmt.Printf("Kind:        %s\n", m.Kind)
	fmt.Printf("Description: %s\n", m.Description)
	if len(m.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(m.Tags, ", "))
	}
	if len(m.Requires) > 0 {
		fmt.Printf("Requires:    %s\n", strings.Join(m.Requires, ", "))
	}
	if len(m.Runtime) > 0 {
		fmt.Printf("Runtime:     %s\n", strings.Join(m.Runtime, ", "))
	}
	for _, ev := range m.Env {
		attrs := []string{}
		if ev.Required {
			attrs = append(attrs, "required")
		}
		if ev.Secret {
			attrs = append(attrs, "secret")
		}
		suffix := ""
		if len(attrs) > 0 {
			suffix = " (" + strings.Join(attrs, ", ") + ")"
		}
		fmt.Printf("Env:         %s%s %s\n", ev.Name, suffix, ev.Description)
	}
	for _, ex := range m.Examples {
		fmt.Printf("\nExample: %s\n%s\n", ex.Title, ex.Code)
	}
	if m.InstallNotes != "" {
		fmt.Printf("\n%s\n", m.InstallNotes)
	}
	return 0
}

func cmdSearch(args []string) int {
	f := parseFlags(args)
	if len(f.rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: agenthub search <tag|term>")
		return 1
	}
	cat, code := loadCatalog(f.dir)
	if code != 0 {
		return code
	}

	// a tag match is preferred over a free-text match
	found := cat.ByTag(f.rest[0])
	if len(found) == 0 {
		found = cat.Search(f.rest[0])
	}
	if f.jsonOut {
		fmt.Println(llmutils.ToJSONIndent(found))
		return 0
	}
	if len(found) == 0 {
		fmt.Fprintln(os.Stderr, "no components found")
		return 1
	}
	for _, m := range found {
		fmt.Printf("%-24s %-8s %s\n", m.Name, m.Kind, m.Description)
	}
	return 0
}

func cmdValidate(args []string) int {
	f := parseFlags(args)
	dir := f.dir
	if len(f.rest) == 1 {
		dir = f.rest[0]
	}

	cat, err := catalog.Load(os.DirFS(dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %s\n", err.Error())
		return 1
	}
	fmt.Printf("OK: %d components\n", cat.Len())
	return 0
}

func cmdInstall(args []string) int {
	f := parseFlags(args)
	if len(f.rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: agenthub install <name...>")
		return 1
	}
	cat, code := loadCatalog(f.dir)
	if code != 0 {
		return code
	}

	plan, err := cat.PlanInstall(f.rest...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	if f.jsonOut {
		fmt.Println(llmutils.ToJSONIndent(plan))
		return 0
	}

	lockPath := filepath.Join(".", catalog.LockFileName)
	lf, err := catalog.OpenLockfile(lockPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	now := time.Now()
	for _, m := range plan.Components {
		if entry, ok := lf.Get(m.Name); ok && entry.Version == m.Version {
			fmt.Printf("up to date  %s@%s\n", m.Name, m.Version)
			continue
		}
		if err := lf.Set(m, now); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Printf("installed   %s@%s\n", m.Name, m.Version)
		if m.InstallNotes != "" {
			fmt.Printf("\n%s\n\n", m.InstallNotes)
		}
	}
	if err := lf.Save(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	if len(plan.Runtime) > 0 {
		fmt.Println("\nruntime modules:")
		for _, dep := range plan.Runtime {
			fmt.Printf("  go get %s\n", dep)
		}
	}
	if len(plan.MissingEnv) > 0 {
		fmt.Fprintln(os.Stderr, "\nmissing required environment variables:")
		for _, ev := range plan.MissingEnv {
			fmt.Fprintf(os.Stderr, "  %s  %s\n", ev.Name, ev.Description)
		}
		return 2
	}
	return 0
}

func cmdEnv(args []string) int {
	f := parseFlags(args)
	if len(f.rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: agenthub env <name...>")
		return 1
	}
	cat, code := loadCatalog(f.dir)
	if code != 0 {
		return code
	}

	plan, err := cat.PlanInstall(f.rest...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	fmt.Print(plan.EnvTemplate())
	return 0
}
