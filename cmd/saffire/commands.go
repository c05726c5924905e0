package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/saffire/config"
	"github.com/chazu/saffire/container"
	"github.com/chazu/saffire/object"
	"github.com/chazu/saffire/signing"
	"github.com/chazu/saffire/vm"
)

func oneFile(name string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: saffire %s <file>", name)
	}
	return args[0], nil
}

// handleInfoCommand processes `saffire info <file>`.
func handleInfoCommand(args []string) error {
	path, err := oneFile("info", args)
	if err != nil {
		return err
	}
	h, err := container.ReadHeader(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("File:         %s\n", path)
	fmt.Printf("Signed:       %t\n", h.Signed())
	fmt.Printf("Timestamp:    %s\n", h.Time().UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Bytecode:     %d bytes at offset %d (%d uncompressed)\n", h.BytecodeLen, h.BytecodeOffset, h.UncompressedLen)
	if h.Signed() {
		fmt.Printf("Signature:    %d bytes at offset %d\n", h.SignatureLen, h.SignatureOffset)
	}
	fmt.Printf("Header:       %s\n", h)
	return nil
}

// handleCheckCommand processes `saffire check [-r] <file|dir>`.
func handleCheckCommand(args []string, store *container.Store, cfg *config.Config) error {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	recursive := flags.Bool("r", false, "Descend into subdirectories")
	flags.Parse(args)
	if flags.NArg() != 1 {
		return errors.New("usage: saffire check [-r] <file|dir>")
	}

	paths, err := containerFiles(flags.Arg(0), cfg.Bytecode.Extension, *recursive)
	if err != nil {
		return err
	}

	failed := 0
	for _, p := range paths {
		if !container.IsValidFile(p) {
			fmt.Printf("%s: not a saffire container\n", p)
			failed++
			continue
		}
		if _, err := store.Load(p, cfg.Bytecode.VerifySignature); err != nil {
			fmt.Printf("%s: %v\n", p, err)
			failed++
			continue
		}
		state := "unsigned"
		if container.IsSigned(p) {
			state = "signed"
		}
		fmt.Printf("%s: ok (%s)\n", p, state)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d containers failed", failed, len(paths))
	}
	return nil
}

// containerFiles lists the containers named by root: the file itself, or the
// files with extension ext inside the directory.
func containerFiles(root, ext string, recursive bool) ([]string, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{root}, nil
	}

	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ext) {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// handleSignCommand processes `saffire sign [-key id] <file>`.
func handleSignCommand(args []string, store *container.Store) error {
	flags := flag.NewFlagSet("sign", flag.ExitOnError)
	key := flags.String("key", "", "Signing key id, fingerprint or user id (default: gpg.key)")
	flags.Parse(args)
	path, err := oneFile("sign", flags.Args())
	if err != nil {
		return err
	}
	if container.IsSigned(path) {
		fmt.Printf("%s: already signed\n", path)
		return nil
	}
	if err := store.AddSignature(path, *key); err != nil {
		return err
	}
	fmt.Printf("%s: signed\n", path)
	return nil
}

// handleUnsignCommand processes `saffire unsign <file>`.
func handleUnsignCommand(args []string) error {
	path, err := oneFile("unsign", args)
	if err != nil {
		return err
	}
	if !container.IsSigned(path) {
		fmt.Printf("%s: not signed\n", path)
		return nil
	}
	if err := container.RemoveSignature(path); err != nil {
		return err
	}
	fmt.Printf("%s: signature removed\n", path)
	return nil
}

// handleVerifyCommand processes `saffire verify <file>`.
func handleVerifyCommand(args []string, store *container.Store) error {
	path, err := oneFile("verify", args)
	if err != nil {
		return err
	}
	if !container.IsSigned(path) {
		return fmt.Errorf("%s: %w", path, container.ErrUnsigned)
	}
	if _, err := store.Load(path, true); err != nil {
		return err
	}
	fmt.Printf("%s: signature OK\n", path)
	return nil
}

// handleDumpCommand processes `saffire dump <file>`.
func handleDumpCommand(args []string, store *container.Store, cfg *config.Config) error {
	path, err := oneFile("dump", args)
	if err != nil {
		return err
	}
	bc, err := store.Load(path, cfg.Bytecode.VerifySignature)
	if err != nil {
		return err
	}
	fmt.Printf("source %s\n", bc.SourceFilename)
	return bc.Disassemble(os.Stdout)
}

// handleRunCommand processes `saffire run <file>`. A numerical result
// becomes the exit status.
func handleRunCommand(args []string, store *container.Store, cfg *config.Config) error {
	path, err := oneFile("run", args)
	if err != nil {
		return err
	}
	bc, err := store.Load(path, cfg.Bytecode.VerifySignature)
	if err != nil {
		return err
	}

	rt := object.NewRuntime()
	th := vm.NewThread(rt)
	th.Define("print", rt.NewNativeCallable("print", builtinPrint))

	res, err := th.Run(bc)
	status := 0
	if res != nil {
		if n, ok := object.NumericalValue(res); ok {
			status = int(n)
		}
		res.DecRef()
	}
	th.Close()
	rt.Shutdown()

	if err != nil {
		return err
	}
	if status != 0 {
		os.Exit(status)
	}
	return nil
}

func builtinPrint(rt *object.Runtime, self *object.Object, args []*object.Object) *object.Object {
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := object.StringValue(a); ok {
			parts[i] = s
		} else {
			parts[i] = object.Debug(a)
		}
	}
	fmt.Println(strings.Join(parts, " "))
	return rt.Null()
}

// handleKeygenCommand processes `saffire keygen [-o prefix] <name> <email>`.
func handleKeygenCommand(args []string) error {
	flags := flag.NewFlagSet("keygen", flag.ExitOnError)
	prefix := flags.String("o", "saffire", "Output file prefix")
	flags.Parse(args)
	if flags.NArg() != 2 {
		return errors.New("usage: saffire keygen [-o prefix] <name> <email>")
	}

	e, err := signing.GenerateKey(flags.Arg(0), flags.Arg(1))
	if err != nil {
		return err
	}
	secPath, pubPath := *prefix+".sec.asc", *prefix+".pub.asc"

	sec, err := os.OpenFile(secPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if err := signing.WriteSecretKey(sec, e); err != nil {
		sec.Close()
		return err
	}
	if err := sec.Close(); err != nil {
		return err
	}

	pub, err := os.Create(pubPath)
	if err != nil {
		return err
	}
	if err := signing.WritePublicKey(pub, e); err != nil {
		pub.Close()
		return err
	}
	if err := pub.Close(); err != nil {
		return err
	}

	fmt.Printf("Generated key %s\n", e.PrimaryKey.KeyIdString())
	fmt.Printf("  secret keyring: %s\n", secPath)
	fmt.Printf("  public keyring: %s\n", pubPath)
	fmt.Printf("\nAdd to saffire.toml:\n\n[gpg]\nkey = %q\nsecret-keyring = %q\npublic-keyring = %q\n",
		e.PrimaryKey.KeyIdString(), secPath, pubPath)
	return nil
}
