package main

import (
	"bytes"
	"crypto/sha256"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/etnz/deb-assembler/deb"
	"github.com/etnz/deb-assembler/session"
	"github.com/etnz/deb-assembler/tools"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		runBuild(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// printUsage prints the help message to stdout.
func printUsage() {
	fmt.Println("Usage: deb-assembler <command> [flags]")
	fmt.Println("\nCommands:")
	fmt.Println("  build    Assemble a package: build [staging [prefix [outdir [version]]]]")
	fmt.Println("  inspect  Print the control stanza of a .deb file or URL")
}

// runBuild executes the 'build' subcommand: one packaging session from the
// staging tree to the output artifact.
func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	confPath := fs.String("config", "deb-assembler.yaml", "Path to config file")
	quiet := fs.Bool("quiet", false, "Suppress progress events")
	fs.Parse(args)

	config, err := decodeConfig(*confPath)
	if err != nil {
		fmt.Printf("Fatal: Could not read or parse config file %s: %v\n", *confPath, err)
		os.Exit(1)
	}
	if err := applyEnv(config, os.Environ()); err != nil {
		fmt.Printf("Fatal: Could not parse environment: %v\n", err)
		os.Exit(1)
	}

	// Positional inputs, each with its documented default.
	config.Session.StagingDir = positional(fs.Args(), 0, session.DefaultStaging)
	config.Session.Prefix = positional(fs.Args(), 1, session.DefaultPrefix)
	config.Session.OutputDir = positional(fs.Args(), 2, session.DefaultOutDir)
	config.Session.Version = positional(fs.Args(), 3, session.DefaultVersion)

	s, err := session.New(config.Session, buildToolchain(config), printListener(*quiet))
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	// A delivered signal settles the session before the process dies; the
	// release guard makes the race with normal completion safe.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		s.Release(true)
		os.Exit(1)
	}()

	artifact, err := s.Run()
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}

	writeChecksum(artifact, config.GPGKey)
	fmt.Println(artifact)
}

// positional returns the i-th positional argument or its default.
func positional(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

// printListener prints progress events, routing failure-path events to the
// error stream.
func printListener(quiet bool) session.Listener {
	return func(e fmt.Stringer) {
		switch e.(type) {
		case session.EventWorkdirPreserved, session.EventCleanupWarning:
			fmt.Fprintln(os.Stderr, e)
		default:
			if !quiet {
				fmt.Println(e)
			}
		}
	}
}

// buildToolchain assembles the capability implementations the config names.
func buildToolchain(config *Config) session.Toolchain {
	tc := session.Toolchain{
		Mirror:  tools.Rsync{},
		Builder: tools.DpkgDeb{},
		Arch:    tools.DpkgArch{},
	}
	if config.Mirror == "native" {
		tc.Mirror = tools.NativeMirror{}
	}
	if config.Builder == "native" {
		tc.Builder = tools.NativeBuilder{}
	}
	if config.Scan {
		tc.Scanner = tools.DpkgShlibdeps{}
	}
	if config.Architecture != "" {
		tc.Arch = tools.StaticArch(config.Architecture)
	}
	return tc
}

// writeChecksum drops a checksum sidecar next to the artifact, clearsigned
// when a key is configured. Failures cost a warning, never the build.
func writeChecksum(artifact, gpgKey string) {
	line, err := deb.ChecksumLine(artifact)
	if err != nil {
		fmt.Printf("Warning: could not checksum %s: %v\n", artifact, err)
		return
	}
	sidecar := artifact + ".sha256"
	if err := os.WriteFile(sidecar, []byte(line), 0644); err != nil {
		fmt.Printf("Warning: could not write %s: %v\n", sidecar, err)
		return
	}
	if gpgKey == "" {
		return
	}
	signed, err := deb.ClearSign([]byte(line), gpgKey)
	if err != nil {
		fmt.Printf("Warning: could not sign %s: %v\n", sidecar, err)
		return
	}
	if err := os.WriteFile(sidecar+".asc", signed, 0644); err != nil {
		fmt.Printf("Warning: could not write %s.asc: %v\n", sidecar, err)
	}
}

// runInspect executes the 'inspect' subcommand for each named package.
func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: deb-assembler inspect <path-or-url> ...")
		os.Exit(1)
	}

	for _, target := range fs.Args() {
		if err := inspect(target); err != nil {
			fmt.Printf("Fatal: %v\n", err)
			os.Exit(1)
		}
	}
}

// inspect prints the control stanza and the SHA256 of one package.
func inspect(target string) error {
	body, err := readDeb(target)
	if err != nil {
		return err
	}

	content, err := deb.ExtractControl(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("reading control from %s: %w", target, err)
	}

	fmt.Printf("# %s\n", target)
	fmt.Print(content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Println()
	}
	fmt.Printf("Size: %d\n", len(body))
	fmt.Printf("SHA256: %x\n", sha256.Sum256(body))
	return nil
}

// readDeb reads a .deb package from a local file path or a URL.
func readDeb(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("fetching %s: status %d", path, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(path)
}
