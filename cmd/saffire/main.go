// Saffire CLI - inspect, sign, verify and run saffire bytecode containers
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/saffire/config"
	"github.com/chazu/saffire/container"
	"github.com/chazu/saffire/object"
	"github.com/chazu/saffire/vm"
)

var log = commonlog.GetLogger("saffire")

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosity) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if b {
		*v++
	}
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }

func main() {
	var verbose verbosity
	flag.Var(&verbose, "v", "Increase log verbosity (repeatable)")
	configPath := flag.String("config", "", "Configuration file (default: nearest saffire.toml or saffire.yaml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: saffire [options] <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  info <file>               Print the container header\n")
		fmt.Fprintf(os.Stderr, "  check [-r] <file|dir>     Validate containers\n")
		fmt.Fprintf(os.Stderr, "  sign [-key id] <file>     Sign a container\n")
		fmt.Fprintf(os.Stderr, "  unsign <file>             Remove the signature of a container\n")
		fmt.Fprintf(os.Stderr, "  verify <file>             Load a container and verify its signature\n")
		fmt.Fprintf(os.Stderr, "  dump <file>               Disassemble a container\n")
		fmt.Fprintf(os.Stderr, "  run <file>                Execute a container\n")
		fmt.Fprintf(os.Stderr, "  keygen [-o prefix] <name> <email>\n")
		fmt.Fprintf(os.Stderr, "                            Generate a signing key pair\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  saffire info hello.sfc\n")
		fmt.Fprintf(os.Stderr, "  saffire check -r ./build\n")
		fmt.Fprintf(os.Stderr, "  saffire sign -key ops@example.org hello.sfc\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	var logPath *string
	if cfg.Log.Path != "" {
		p := cfg.ResolvePath(cfg.Log.Path)
		logPath = &p
	}
	commonlog.Configure(cfg.Log.Verbosity+int(verbose), logPath)

	opts, err := container.OptionsFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store := container.NewStore(opts)

	args := flag.Args()
	switch args[0] {
	case "info":
		err = handleInfoCommand(args[1:])
	case "check":
		err = handleCheckCommand(args[1:], store, cfg)
	case "sign":
		err = handleSignCommand(args[1:], store)
	case "unsign":
		err = handleUnsignCommand(args[1:])
	case "verify":
		err = handleVerifyCommand(args[1:], store)
	case "dump":
		err = handleDumpCommand(args[1:], store, cfg)
	case "run":
		err = handleRunCommand(args[1:], store, cfg)
	case "keygen":
		err = handleKeygenCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		die(err)
	}
}

// loadConfig reads the configuration named by path, or the nearest one
// above the working directory, or the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// die reports err and exits. Integrity and interpreter failures are logged
// as critical; everything else is a plain error message.
func die(err error) {
	var ue *vm.UncaughtError
	var ce *vm.ConsistencyError
	var ie *object.InvariantError
	switch {
	case container.IsFatal(err), errors.As(err, &ce), errors.As(err, &ie):
		log.Criticalf("%s", err)
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
	case errors.As(err, &ue):
		fmt.Fprintf(os.Stderr, "Error: %v\n", ue)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
