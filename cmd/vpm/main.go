// Package main is vpm's command-line front end: a thin dispatcher over
// the vpm package's ops, in the same command-table shape as golang-dep's
// main.go/cmd.go, generalized from a single flag.FlagSet-per-command loop
// to vpm's explicit OpOptions.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vellum-lang/vpm"
	"github.com/vellum-lang/vpm/internal/registry"
	"github.com/vellum-lang/vpm/internal/uuid"
)

type command interface {
	Name() string
	ShortHelp() string
	Run(args []string) error
}

func main() {
	ctx, err := vpm.NewContext()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	commands := []command{
		&addCommand{ctx: ctx},
		&rmCommand{ctx: ctx},
		&upCommand{ctx: ctx},
		&pinCommand{ctx: ctx},
		&freeCommand{ctx: ctx},
		&instantiateCommand{ctx: ctx},
		&statusCommand{ctx: ctx},
		&gcCommand{ctx: ctx},
	}

	if len(os.Args) <= 1 {
		usage(commands)
		os.Exit(1)
	}

	for _, c := range commands {
		if c.Name() != os.Args[1] {
			continue
		}
		if err := c.Run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "vpm %s: %v\n", c.Name(), err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "vpm: no such command %q\n", os.Args[1])
	usage(commands)
	os.Exit(1)
}

func usage(commands []command) {
	fmt.Fprintln(os.Stderr, "Usage: vpm <command> [args...]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", c.Name(), c.ShortHelp())
	}
}

// loadRegistry opens every registry listed under the depot's registries/
// directory as a DirBackend and layers them in listing order, per
// spec.md §4.2's layering contract.
func loadRegistry(ctx *vpm.Ctx) (*registry.Layered, error) {
	d, err := ctx.OpenDepot()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.RegistriesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return &registry.Layered{}, nil
		}
		return nil, err
	}

	var idxs []*registry.Index
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		backend := registry.DirBackend{Root: d.RegistriesDir() + "/" + ent.Name()}
		idx, err := registry.NewIndex(backend)
		if err != nil {
			return nil, err
		}
		idxs = append(idxs, idx)
	}
	return &registry.Layered{Indexes: idxs}, nil
}

func loadEnv(ctx *vpm.Ctx) (*vpm.Environment, error) {
	reg, err := loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	return ctx.LoadEnvironment("", reg)
}

type addCommand struct{ ctx *vpm.Ctx }

func (c *addCommand) Name() string      { return "add" }
func (c *addCommand) ShortHelp() string { return "add a dependency to the project" }
func (c *addCommand) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: vpm add <name>=<uuid>[@compat] ...")
	}
	e, err := loadEnv(c.ctx)
	if err != nil {
		return err
	}
	specs := make([]vpm.PackageSpec, 0, len(args))
	for _, arg := range args {
		spec, err := parsePackageArg(arg)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}
	return vpm.Add(e, specs, vpm.DefaultOptions(), time.Now())
}

// parsePackageArg parses "name=uuid" or "name=uuid@compat".
func parsePackageArg(arg string) (vpm.PackageSpec, error) {
	nameRest := strings.SplitN(arg, "=", 2)
	if len(nameRest) != 2 {
		return vpm.PackageSpec{}, fmt.Errorf("%q: expected name=uuid[@compat]", arg)
	}
	uuidCompat := strings.SplitN(nameRest[1], "@", 2)

	spec := vpm.PackageSpec{Name: nameRest[0]}
	id, err := uuid.Parse(uuidCompat[0])
	if err != nil {
		return vpm.PackageSpec{}, err
	}
	spec.UUID = id
	if len(uuidCompat) == 2 {
		spec.Compat = &uuidCompat[1]
	}
	return spec, nil
}

type rmCommand struct{ ctx *vpm.Ctx }

func (c *rmCommand) Name() string      { return "rm" }
func (c *rmCommand) ShortHelp() string { return "remove a dependency from the project" }
func (c *rmCommand) Run(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	manifestOnly := fs.Bool("manifest", false, "remove only from the manifest, not project.deps")
	fs.Parse(args)

	e, err := loadEnv(c.ctx)
	if err != nil {
		return err
	}
	opts := vpm.DefaultOptions()
	if *manifestOnly {
		opts.Mode = vpm.ModeManifest
	} else {
		opts.Mode = vpm.ModeCombined
	}
	return vpm.Rm(e, fs.Args(), opts, time.Now())
}

type upCommand struct{ ctx *vpm.Ctx }

func (c *upCommand) Name() string      { return "up" }
func (c *upCommand) ShortHelp() string { return "re-resolve and upgrade dependencies" }
func (c *upCommand) Run(args []string) error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	level := fs.String("level", "patch", "upgrade ceiling: major, minor, patch, or fixed")
	fs.Parse(args)

	e, err := loadEnv(c.ctx)
	if err != nil {
		return err
	}
	opts := vpm.DefaultOptions()
	switch strings.ToLower(*level) {
	case "major":
		opts.Level = vpm.LevelMajor
	case "minor":
		opts.Level = vpm.LevelMinor
	case "patch":
		opts.Level = vpm.LevelPatch
	case "fixed":
		opts.Level = vpm.LevelFixed
	default:
		return fmt.Errorf("unknown -level %q", *level)
	}
	return vpm.Up(e, opts, time.Now())
}

type pinCommand struct{ ctx *vpm.Ctx }

func (c *pinCommand) Name() string      { return "pin" }
func (c *pinCommand) ShortHelp() string { return "pin dependencies at their current version" }
func (c *pinCommand) Run(args []string) error {
	e, err := loadEnv(c.ctx)
	if err != nil {
		return err
	}
	return vpm.Pin(e, args, time.Now())
}

type freeCommand struct{ ctx *vpm.Ctx }

func (c *freeCommand) Name() string      { return "free" }
func (c *freeCommand) ShortHelp() string { return "unpin dependencies and re-resolve" }
func (c *freeCommand) Run(args []string) error {
	e, err := loadEnv(c.ctx)
	if err != nil {
		return err
	}
	return vpm.Free(e, args, vpm.DefaultOptions(), time.Now())
}

type instantiateCommand struct{ ctx *vpm.Ctx }

func (c *instantiateCommand) Name() string      { return "instantiate" }
func (c *instantiateCommand) ShortHelp() string { return "install everything the manifest already names" }
func (c *instantiateCommand) Run(args []string) error {
	e, err := loadEnv(c.ctx)
	if err != nil {
		return err
	}
	diff, err := vpm.Instantiate(e, vpm.DefaultOptions(), time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("added %d, removed %d, modified %d\n", len(diff.Added), len(diff.Removed), len(diff.Modified))
	return nil
}

type statusCommand struct{ ctx *vpm.Ctx }

func (c *statusCommand) Name() string      { return "status" }
func (c *statusCommand) ShortHelp() string { return "report depot verification state for every dependency" }
func (c *statusCommand) Run(args []string) error {
	e, err := loadEnv(c.ctx)
	if err != nil {
		return err
	}
	statuses, err := vpm.Status(e)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		mark := "ok"
		if !st.Present {
			mark = "missing"
		} else if !st.HashOK {
			mark = "corrupt"
		}
		fmt.Printf("%-30s %-10s %s\n", st.Name, st.Tracking, mark)
	}
	return nil
}

type gcCommand struct{ ctx *vpm.Ctx }

func (c *gcCommand) Name() string      { return "gc" }
func (c *gcCommand) ShortHelp() string { return "sweep unreferenced packages and artifacts from the depot" }
func (c *gcCommand) Run(args []string) error {
	fs := flag.NewFlagSet("gc", flag.ExitOnError)
	delay := fs.Duration("delay", 7*24*time.Hour, "collect-delay grace period before deletion")
	fs.Parse(args)

	d, err := c.ctx.OpenDepot()
	if err != nil {
		return err
	}
	report, err := vpm.GC(d, *delay, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("packages: deleted %d, orphaned %d\n", len(report.Packages.Deleted), len(report.Packages.Orphaned))
	fmt.Printf("artifacts: deleted %d, orphaned %d\n", len(report.Artifacts.Deleted), len(report.Artifacts.Orphaned))
	return nil
}
